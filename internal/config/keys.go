package config

const (
	KeyPostgresURL    = "postgres_url"
	KeyLogLevel       = "log_level"
	KeyBindAddress    = "bind_address"
	KeyWebhookSecret  = "webhook_secret"
	KeyGitHubToken    = "github_token"
	KeyAppID          = "github_app_id"
	KeyInstallationID = "github_installation_id"
	KeyPrivateKeyPath = "github_private_key_path"
	KeyStatusContext  = "status_context"
	KeyRepoConfigPath = "repo_config_path"
	KeyStoreDebug     = "store_debug"
)
