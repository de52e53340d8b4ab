package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Init(root *cobra.Command) {
	viper.AutomaticEnv()
	_ = godotenv.Load(".env")
	if root != nil {
		_ = viper.BindPFlags(root.PersistentFlags())
	}
	setDefaults()
}

func setDefaults() {
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyBindAddress, ":8080")
	viper.SetDefault(KeyStatusContext, "ci/angular: merge status")
	viper.SetDefault(KeyRepoConfigPath, ".github/angular-robot.yml")
	viper.SetDefault(KeyStoreDebug, false)
}

func PostgresURL() string    { return viper.GetString(KeyPostgresURL) }
func LogLevel() string       { return viper.GetString(KeyLogLevel) }
func BindAddress() string    { return viper.GetString(KeyBindAddress) }
func WebhookSecret() string  { return viper.GetString(KeyWebhookSecret) }
func GitHubToken() string    { return viper.GetString(KeyGitHubToken) }
func AppID() int64           { return viper.GetInt64(KeyAppID) }
func InstallationID() int64  { return viper.GetInt64(KeyInstallationID) }
func PrivateKeyPath() string { return viper.GetString(KeyPrivateKeyPath) }
func StatusContext() string  { return viper.GetString(KeyStatusContext) }
func RepoConfigPath() string { return viper.GetString(KeyRepoConfigPath) }
func StoreDebug() bool       { return viper.GetBool(KeyStoreDebug) }
