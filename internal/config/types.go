package config

import "time"

// Config is the root configuration structure for ralph-core.
// Serialised to ~/.ralph/config.json.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	GitHub   GitHubConfig   `mapstructure:"github"   json:"github"`
	Daemon   DaemonConfig   `mapstructure:"daemon"   json:"daemon"`
	Notify   NotifyConfig   `mapstructure:"notify"   json:"notify"`
}

// DatabaseConfig controls the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `mapstructure:"driver" json:"driver"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path"   json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn"    json:"dsn"`
}

// GitHubConfig holds credentials for the GitHub App or PAT this daemon
// authenticates as. Exactly one of Token or (AppID, InstallationID,
// PrivateKeyPath) should be set; App-installation auth takes precedence.
type GitHubConfig struct {
	// Token is a classic/fine-grained personal access token. Used when no
	// App credentials are configured.
	Token string `mapstructure:"token" json:"token"`
	// Host allows enterprise GitHub (e.g. github.mycompany.com).
	Host string `mapstructure:"host" json:"host"`

	// AppID, InstallationID, and PrivateKeyPath configure GitHub App
	// installation-token authentication (spec §4.B).
	AppID          int64  `mapstructure:"app_id"           json:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"  json:"installation_id"`
	PrivateKeyPath string `mapstructure:"private_key_path" json:"private_key_path"`
}

// DaemonConfig controls process identity, control root, and worker topology.
type DaemonConfig struct {
	// ControlRoot is the canonical directory holding the daemon record,
	// control file, and (by default) the SQLite database.
	ControlRoot string `mapstructure:"control_root" json:"control_root"`
	// ManagedLegacyRoots are additional roots scanned for daemon records
	// that doctor may quarantine or promote.
	ManagedLegacyRoots []string `mapstructure:"managed_legacy_roots" json:"managed_legacy_roots"`
	// MaxWorkers bounds the number of concurrent per-repo workers.
	MaxWorkers int `mapstructure:"max_workers" json:"max_workers"`
	// SlotsPerWorker bounds concurrent in-flight tasks per worker.
	SlotsPerWorker int `mapstructure:"slots_per_worker" json:"slots_per_worker"`
	// Repos lists the repositories this daemon schedules work for, as
	// "owner/name".
	Repos []string `mapstructure:"repos" json:"repos"`
	// BotBranch is the integration branch task PRs land on before rollup.
	BotBranch string `mapstructure:"bot_branch" json:"bot_branch"`
	// PollInterval governs the claim-loop tick cadence.
	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
	// RalphVersion is recorded in the daemon record for diagnostics.
	RalphVersion string `mapstructure:"ralph_version" json:"ralph_version"`
	// SessionsDir holds each session's events.jsonl, per spec §6's
	// <sessionsDir>/<sessionId>/events.jsonl layout.
	SessionsDir string `mapstructure:"sessions_dir" json:"sessions_dir"`
	// AgentCommand is the external agent subprocess command line. The
	// placeholders {task}, {stage}, {message}, {session}, and {events} are
	// substituted per invocation; the subprocess itself is an external
	// collaborator, specified only by the event stream it emits.
	AgentCommand []string `mapstructure:"agent_command" json:"agent_command"`
}

// NotifyConfig controls outbound notifications on escalation, guardrail
// kills, and doctor error findings.
type NotifyConfig struct {
	Slack    SlackNotifyConfig    `mapstructure:"slack"    json:"slack"`
	Telegram TelegramNotifyConfig `mapstructure:"telegram" json:"telegram"`
	Webhook  WebhookNotifyConfig  `mapstructure:"webhook"  json:"webhook"`
	Email    EmailNotifyConfig    `mapstructure:"email"    json:"email"`
	// MinSeverity filters guardrail/escalation events below this level; the
	// empty string notifies on everything regardless of severity.
	MinSeverity string `mapstructure:"min_severity" json:"min_severity"`
	// Events is the explicit list of event types to notify on; empty means
	// use the package's default set.
	Events []string `mapstructure:"events" json:"events"`
}

// SlackNotifyConfig holds the Slack incoming webhook URL.
type SlackNotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
}

// TelegramNotifyConfig holds Telegram Bot API credentials.
type TelegramNotifyConfig struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token"`
	ChatID   string `mapstructure:"chat_id"   json:"chat_id"`
}

// WebhookNotifyConfig holds generic HTTP webhook settings.
type WebhookNotifyConfig struct {
	URL    string `mapstructure:"url"    json:"url"`
	Secret string `mapstructure:"secret" json:"secret"` // HMAC-SHA256 signing key
}

// EmailNotifyConfig holds SMTP settings for email notifications.
type EmailNotifyConfig struct {
	SMTPHost string `mapstructure:"smtp_host" json:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" json:"smtp_port"`
	Username string `mapstructure:"username"  json:"username"`
	Password string `mapstructure:"password"  json:"password"`
	From     string `mapstructure:"from"      json:"from"`
	To       string `mapstructure:"to"        json:"to"`
	UseTLS   bool   `mapstructure:"use_tls"   json:"use_tls"`
}
