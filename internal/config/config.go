package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Keycloak KeycloakConfig `mapstructure:"keycloak"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Access   AccessConfig   `mapstructure:"access"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id"`
	Topics          []string `mapstructure:"topics"`
}

type KeycloakConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Realm is the realm whose groups and roles this service manages.
	Realm string `mapstructure:"realm"`
	// AdminRealm is the realm used to obtain admin access tokens (usually "master").
	AdminRealm string `mapstructure:"admin_realm"`
	// AdminClientID and AdminClientSecret are credentials for the admin API client.
	AdminClientID     string `mapstructure:"admin_client_id"`
	AdminClientSecret string `mapstructure:"admin_client_secret"`
}

type SyncConfig struct {
	// TenantPrefix marks a top-level group as a tenant group.
	TenantPrefix string `mapstructure:"tenant_prefix"`
	// ExcludedRoles are realm roles that never get a tenant subgroup.
	// Roles named "default-roles-*" are always excluded on top of this.
	ExcludedRoles []string `mapstructure:"excluded_roles"`
	// IntervalMinutes is the periodic full-sync interval. Zero disables it.
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

type AccessConfig struct {
	// SystemAdminRole grants unrestricted access to every tenant.
	SystemAdminRole string `mapstructure:"system_admin_role"`
}

// Interval returns the periodic sync interval as a duration.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: ARDA_TENANT_
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8091")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "arda_tenant_manager")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "arda-tenant-manager-group")
	v.SetDefault("kafka.topics", []string{"iam-events"})
	v.SetDefault("keycloak.base_url", "http://localhost:8081")
	v.SetDefault("keycloak.realm", "arda")
	v.SetDefault("keycloak.admin_realm", "master")
	v.SetDefault("keycloak.admin_client_id", "arda-tenant-manager-service")
	v.SetDefault("sync.tenant_prefix", "tenant_")
	v.SetDefault("sync.excluded_roles", []string{"offline_access", "uma_authorization"})
	v.SetDefault("sync.interval_minutes", 30)
	v.SetDefault("access.system_admin_role", "PLATFORM_ADMIN")

	// Environment variables (e.g. DATABASE_HOST -> database.host)
	v.SetEnvPrefix("ARDA_TENANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("keycloak.base_url", "KEYCLOAK_URL")
	v.BindEnv("keycloak.realm", "KEYCLOAK_REALM")
	v.BindEnv("keycloak.admin_realm", "KEYCLOAK_ADMIN_REALM")
	v.BindEnv("keycloak.admin_client_id", "KEYCLOAK_ADMIN_CLIENT_ID")
	v.BindEnv("keycloak.admin_client_secret", "KEYCLOAK_ADMIN_CLIENT_SECRET")
	v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=disable"
}
