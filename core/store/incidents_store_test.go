package store

import (
	"context"
	"errors"
	"testing"
)

func TestSeedDataIsPresent(t *testing.T) {
	is := NewIncidentsStore(newTestDB(t), FlavorSQLite)
	sectors, err := is.ListSectors(context.Background())
	if err != nil {
		t.Fatalf("ListSectors: %v", err)
	}
	if len(sectors) != 7 {
		t.Fatalf("sectors = %d, want 7", len(sectors))
	}
	types, err := is.ListIncidentTypes(context.Background())
	if err != nil {
		t.Fatalf("ListIncidentTypes: %v", err)
	}
	if len(types) != 12 {
		t.Fatalf("incident types = %d, want 12", len(types))
	}
	for _, it := range types {
		if it.SeverityWeight < 1 || it.SeverityWeight > 5 {
			t.Fatalf("type %s weight %d out of range", it.Name, it.SeverityWeight)
		}
	}
}

func TestCreateAndGetIncident(t *testing.T) {
	is := NewIncidentsStore(newTestDB(t), FlavorSQLite)
	inc := &Incident{Title: "chemical spill", Description: "solvent leak", SectorID: 1, IncidentTypeID: 2, Probability: 0.7, ReportedBy: "u12"}
	if _, err := is.CreateIncident(context.Background(), inc); err != nil {
		t.Fatalf("CreateIncident: %v", err)
	}
	got, err := is.GetIncident(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if got == nil || got.Title != "chemical spill" || got.Version != 1 {
		t.Fatalf("incident = %+v", got)
	}
	if got.RiskScore != nil {
		t.Fatalf("new incident must have no risk score, got %v", *got.RiskScore)
	}

	missing, err := is.GetIncident(context.Background(), 99999)
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing incident, got %+v", missing)
	}
}

func TestSetIncidentScoreVersioned(t *testing.T) {
	is := NewIncidentsStore(newTestDB(t), FlavorSQLite)
	inc := &Incident{Title: "fall", SectorID: 2, IncidentTypeID: 2, Probability: 0.5}
	if _, err := is.CreateIncident(context.Background(), inc); err != nil {
		t.Fatalf("CreateIncident: %v", err)
	}
	if err := is.SetIncidentScore(context.Background(), inc.ID, 0.78, "high", 1); err != nil {
		t.Fatalf("SetIncidentScore: %v", err)
	}
	got, err := is.GetIncident(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if got.RiskScore == nil || *got.RiskScore != 0.78 || got.Severity != "high" || got.Version != 2 {
		t.Fatalf("incident after score = %+v", got)
	}

	// stale version loses
	if err := is.SetIncidentScore(context.Background(), inc.ID, 0.5, "medium", 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale write err = %v, want ErrConflict", err)
	}
}

func TestListIncidentsFilter(t *testing.T) {
	is := NewIncidentsStore(newTestDB(t), FlavorSQLite)
	for _, title := range []string{"ladder fall", "forklift near miss"} {
		inc := &Incident{Title: title, SectorID: 1, IncidentTypeID: 2, Probability: 0.3}
		if _, err := is.CreateIncident(context.Background(), inc); err != nil {
			t.Fatalf("CreateIncident: %v", err)
		}
	}
	items, err := is.ListIncidents(context.Background(), IncidentFilter{Search: "ladder"})
	if err != nil {
		t.Fatalf("ListIncidents: %v", err)
	}
	if len(items) != 1 || items[0].Title != "ladder fall" {
		t.Fatalf("items = %+v", items)
	}
	all, err := is.ListIncidents(context.Background(), IncidentFilter{SectorID: 1})
	if err != nil {
		t.Fatalf("ListIncidents: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("sector filter items = %d, want 2", len(all))
	}
}
