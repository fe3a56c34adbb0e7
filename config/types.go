package config

import "time"

type AppConfig struct {
	DBDriver   string          `yaml:"db_driver" env:"KESTREL_DB_DRIVER" env-default:"sqlite"`
	DBURL      string          `yaml:"db_url" env:"KESTREL_DB_URL" env-default:"data/kestrel.db"`
	ListenAddr string          `yaml:"listen_addr" env:"KESTREL_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	AppEnv     string          `yaml:"app_env" env:"KESTREL_APP_ENV"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
	Workflows  WorkflowsConfig `yaml:"workflows"`
	Notify     NotifyConfig    `yaml:"notify"`
}

type SchedulerConfig struct {
	Enabled         bool `yaml:"enabled" env:"KESTREL_SCHEDULER_ENABLED" env-default:"true"`
	IntervalSeconds int  `yaml:"interval_seconds" env:"KESTREL_SCHEDULER_INTERVAL_SECONDS" env-default:"60"`
	MaxStepsPerPass int  `yaml:"max_steps_per_pass" env:"KESTREL_SCHEDULER_MAX_STEPS_PER_PASS" env-default:"100"`
}

func (c SchedulerConfig) EffectiveInterval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

type WorkflowsConfig struct {
	OneWorkflowPerIncident bool `yaml:"one_workflow_per_incident" env:"KESTREL_WORKFLOWS_ONE_PER_INCIDENT" env-default:"true"`
	ActionHistoryLimit     int  `yaml:"action_history_limit" env:"KESTREL_WORKFLOWS_ACTION_HISTORY_LIMIT" env-default:"10"`
}

type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" env:"KESTREL_NOTIFY_WEBHOOK_URL"`
	TimeoutSec int    `yaml:"timeout_sec" env:"KESTREL_NOTIFY_TIMEOUT_SEC" env-default:"10"`
}
