package config

import (
	"flag"
	"reflect"
	"time"

	"github.com/rs/zerolog/log"
	sc "github.com/sksmith/go-spring-config"
	"github.com/spf13/viper"
)

const (
	AppName  = "Video Shoppe"
	Revision = "1"

	maxRetries = 5
)

var (
	// Build time arguments
	AppVersion  string
	Sha1Version string
	BuildTime   string

	// Runtime flags
	profile      *string
	configSource *string
	configUrl    *string
	configBranch *string
	configUser   *string
	configPass   *string
)

type StringConfig struct {
	key         string
	Value       string `json:"value"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

func (c *StringConfig) load() {
	if c.key != "" {
		c.Value = viper.GetString(c.key)
	}
}

type BoolConfig struct {
	key         string
	Value       bool   `json:"value"`
	Default     bool   `json:"default"`
	Description string `json:"description"`
}

func (c *BoolConfig) load() {
	if c.key != "" {
		c.Value = viper.GetBool(c.key)
	}
}

type IntConfig struct {
	key         string
	Value       int    `json:"value"`
	Default     int    `json:"default"`
	Description string `json:"description"`
}

func (c *IntConfig) load() {
	if c.key != "" {
		c.Value = viper.GetInt(c.key)
	}
}

type StringSliceConfig struct {
	key         string
	Value       []string `json:"value"`
	Default     []string `json:"default"`
	Description string   `json:"description"`
}

func (c *StringSliceConfig) load() {
	if c.key != "" {
		c.Value = viper.GetStringSlice(c.key)
	}
}

type Config struct {
	AppName     StringConfig   `json:"appName"`
	AppVersion  StringConfig   `json:"appVersion"`
	Sha1Version StringConfig   `json:"sha1Version"`
	BuildTime   StringConfig   `json:"buildTime"`
	Profile     StringConfig   `json:"profile"`
	Revision    StringConfig   `json:"revision"`
	Port        StringConfig   `json:"port"`
	Config      ConfigSource   `json:"config"`
	Log         LogConfig      `json:"log"`
	Db          DbConfig       `json:"db"`
	RabbitMQ    QueueConfig    `json:"rabbitmq"`
	Rental      RentalConfig   `json:"rental"`
	Http        HttpConfig     `json:"http"`
	Security    SecurityConfig `json:"security"`
	Tracing     TracingConfig  `json:"tracing"`
}

type ConfigSource struct {
	Print       BoolConfig   `json:"print"`
	Source      StringConfig `json:"source"`
	Spring      SpringConfig `json:"spring"`
	Description string       `json:"description"`
}

type SpringConfig struct {
	Url         StringConfig `json:"url"`
	Branch      StringConfig `json:"branch"`
	User        StringConfig `json:"user"`
	Pass        StringConfig `json:"pass" sensitive:"true"`
	Description string       `json:"description"`
}

type LogConfig struct {
	Level       StringConfig `json:"level"`
	Structured  BoolConfig   `json:"structured"`
	Description string       `json:"description"`
}

type DbConfig struct {
	Name        StringConfig `json:"name"`
	Host        StringConfig `json:"host"`
	Port        StringConfig `json:"port"`
	Migrate     BoolConfig   `json:"migrate"`
	Clean       BoolConfig   `json:"clean"`
	InMemory    BoolConfig   `json:"inMemory"`
	User        StringConfig `json:"user"`
	Pass        StringConfig `json:"pass" sensitive:"true"`
	Pool        DbPoolConfig `json:"pool"`
	Description string       `json:"description"`
}

type DbPoolConfig struct {
	MinSize     IntConfig `json:"minPoolSize"`
	MaxSize     IntConfig `json:"maxPoolSize"`
	Description string    `json:"description"`
}

type QueueConfig struct {
	Host        StringConfig       `json:"host"`
	Port        StringConfig       `json:"port"`
	User        StringConfig       `json:"user"`
	Pass        StringConfig       `json:"pass" sensitive:"true"`
	Mock        BoolConfig         `json:"mock"`
	Rental      ExchangeConfig     `json:"rental"`
	Inventory   ExchangeConfig     `json:"inventory"`
	Catalog     CatalogQueueConfig `json:"catalog"`
	Description string             `json:"description"`
}

type ExchangeConfig struct {
	Exchange    StringConfig `json:"exchange"`
	Description string       `json:"description"`
}

type CatalogQueueConfig struct {
	Queue       StringConfig   `json:"queue"`
	Dlt         ExchangeConfig `json:"dlt"`
	Description string         `json:"description"`
}

type RentalConfig struct {
	TimeZone        StringConfig `json:"timeZone"`
	RestockOnReturn BoolConfig   `json:"restockOnReturn"`
	MaxRentAgeYears IntConfig    `json:"maxRentAgeYears"`
	Description     string       `json:"description"`
}

type HttpConfig struct {
	AllowedOrigins  StringSliceConfig `json:"allowedOrigins"`
	AuthFailures    IntConfig         `json:"authFailures"`
	AuthFailureWait StringConfig      `json:"authFailureWait"`
	GenerateRoutes  BoolConfig        `json:"generateRoutes"`
	Description     string            `json:"description"`
}

type SecurityConfig struct {
	AdminUser   StringConfig `json:"adminUser"`
	AdminPass   StringConfig `json:"adminPass" sensitive:"true"`
	Description string       `json:"description"`
}

type TracingConfig struct {
	Enabled     BoolConfig   `json:"enabled"`
	Endpoint    StringConfig `json:"endpoint"`
	Description string       `json:"description"`
}

// AuthFailureInterval parses http.authFailureWait, falling back to one minute.
func (c HttpConfig) AuthFailureInterval() time.Duration {
	d, err := time.ParseDuration(c.AuthFailureWait.Value)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

func (c *Config) Print() {
	if c.Config.Print.Value {
		log.Info().Interface("config", c).Msg("the following configurations have successfully loaded")
	}
}

func init() {
	profile = flag.String("p", "local", "profile for the application config")
	configSource = flag.String("s", "local", "where to get configurations from")
	configUrl = flag.String("cfgUrl", "", "url for application config server")
	configBranch = flag.String("cfgBranch", "", "branch to request from the configuration server (used for spring cloud config)")
	configUser = flag.String("cfgUser", "", "username to use when connecting to the application server")
	configPass = flag.String("cfgPass", "", "password to use when connecting to the application server")
}

// LoadDefaults returns a configuration holding only default values.
func LoadDefaults() *Config {
	return newConfig()
}

// Load reads the named yaml file from the working directory on top of the defaults and, when the source flag is
// spring, the remote Spring Cloud Config values on top of that.
func Load(filename string) *Config {
	cfg := newConfig()

	viper.SetConfigName(filename)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("failed to read config file, using defaults")
	}

	switch *configSource {
	case "local":
	case "spring":
		if err := loadRemoteConfigs(); err != nil {
			log.Fatal().Err(err).Msg("failed to load remote configurations")
		}
	default:
		log.Warn().
			Str("configSource", *configSource).
			Msg("unrecognized configuration source, using local")
	}

	apply(reflect.ValueOf(cfg).Elem())

	return cfg
}

func loadRemoteConfigs() error {
	log.Info().Str("url", *configUrl).Str("branch", *configBranch).Msg("loading remote configurations...")

	var remote *sc.Config
	var err error
	for tryCount := 1; tryCount <= maxRetries; tryCount++ {
		remote, err = sc.LoadWithCreds(*configUrl, AppName, *configBranch, *configUser, *configPass, *profile)
		if err == nil {
			break
		}
		log.Error().Err(err).Int("try", tryCount).Msg("failed to load configurations... retrying")
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return err
	}

	for k, v := range remote.Values {
		viper.Set(k, v)
	}
	return nil
}

type loader interface {
	load()
}

func apply(v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Struct || !f.CanAddr() || !f.Addr().CanInterface() {
			continue
		}
		if l, ok := f.Addr().Interface().(loader); ok {
			l.load()
			continue
		}
		apply(f)
	}
}

func str(key, def, desc string) StringConfig {
	viper.SetDefault(key, def)
	return StringConfig{key: key, Value: def, Default: def, Description: desc}
}

func boolean(key string, def bool, desc string) BoolConfig {
	viper.SetDefault(key, def)
	return BoolConfig{key: key, Value: def, Default: def, Description: desc}
}

func integer(key string, def int, desc string) IntConfig {
	viper.SetDefault(key, def)
	return IntConfig{key: key, Value: def, Default: def, Description: desc}
}

func strs(key string, def []string, desc string) StringSliceConfig {
	viper.SetDefault(key, def)
	return StringSliceConfig{key: key, Value: def, Default: def, Description: desc}
}

func newConfig() *Config {
	cfg := &Config{
		AppName:     StringConfig{Value: AppName, Default: AppName, Description: "Name of the application in a human readable format. Example: Video Shoppe"},
		AppVersion:  StringConfig{Value: AppVersion, Description: "Semantic version of the application. Example: v1.2.3"},
		Sha1Version: StringConfig{Value: Sha1Version, Description: "Git sha1 hash of the application version."},
		BuildTime:   StringConfig{Value: BuildTime, Description: "When this version of the application was compiled."},
		Profile:     str("profile", *profile, "Running profile of the application, can assist with sensible defaults or change behavior. Examples: local, dev, prod"),
		Revision:    StringConfig{Value: Revision, Default: Revision, Description: "A hard coded revision handy for quickly determining if local changes are running. Examples: 1, Two, 9999"},
		Port:        str("port", "8080", "Port that the application will bind to on startup. Examples: 8080, 3000"),
	}

	cfg.Config = ConfigSource{
		Print:       boolean("config.print", false, "Print configurations on startup."),
		Source:      StringConfig{Value: *configSource, Default: "local", Description: "Where the application should go for configurations. Examples: local, spring"},
		Description: "Settings for where and how the application should get its configurations.",
		Spring: SpringConfig{
			Url:         StringConfig{Value: *configUrl, Description: "The url of the Spring Cloud Config server."},
			Branch:      StringConfig{Value: *configBranch, Description: "The git branch to use to pull configurations from. Examples: main, master, development"},
			User:        StringConfig{Value: *configUser, Description: "User to use when connecting to the Spring Cloud Config server."},
			Pass:        StringConfig{Value: *configPass, Description: "Password to use when connecting to the Spring Cloud Config server."},
			Description: "Configuration settings for Spring Cloud Config. These are only used if config.source is spring.",
		},
	}

	cfg.Log = LogConfig{
		Level:       str("log.level", "info", "The lowest level that the application should log at. Examples: info, warn, error."),
		Structured:  boolean("log.structured", false, "Whether the application should output structured (json) logging, or human friendly plain text."),
		Description: "Settings for applicaton logging.",
	}

	cfg.Db = DbConfig{
		Name:     str("db.name", "video-shoppe-db", "The name of the database to connect to."),
		Host:     str("db.host", "localhost", "Host of the database."),
		Port:     str("db.port", "5432", "Port of the database."),
		Migrate:  boolean("db.migrate", true, "Whether or not database migrations should be executed on startup."),
		Clean:    boolean("db.clean", false, "WARNING: THIS WILL DELETE ALL DATA FROM THE DB. Used only during migration. If clean is true, all 'down' migrations are executed."),
		InMemory: boolean("db.inMemory", false, "Whether or not the application should use an in memory database."),
		User:     str("db.user", "postgres", "User the application will use to connect to the database."),
		Pass:     str("db.pass", "postgres", "Password the application will use for connecting to the database."),
		Pool: DbPoolConfig{
			MinSize:     integer("db.pool.minSize", 1, "The minimum size of the pool."),
			MaxSize:     integer("db.pool.maxSize", 10, "The maximum size of the pool."),
			Description: "Database connection pool settings.",
		},
		Description: "Database configurations.",
	}

	cfg.RabbitMQ = QueueConfig{
		Host: str("rabbitmq.host", "localhost", "RabbitMQ's broker host."),
		Port: str("rabbitmq.port", "5672", "RabbitMQ's broker host port."),
		User: str("rabbitmq.user", "guest", "User the application will use to connect to RabbitMQ."),
		Pass: str("rabbitmq.pass", "guest", "Password the application will use to connect to RabbitMQ."),
		Mock: boolean("rabbitmq.mock", false, "Whether or not the application should mock sending messages to RabbitMQ."),
		Rental: ExchangeConfig{
			Exchange:    str("rabbitmq.rental.exchange", "rental.exchange", "RabbitMQ exchange to use for posting checkout, sale and return events."),
			Description: "RabbitMQ settings for rental related updates.",
		},
		Inventory: ExchangeConfig{
			Exchange:    str("rabbitmq.inventory.exchange", "inventory.exchange", "RabbitMQ exchange to use for posting item stock updates."),
			Description: "RabbitMQ settings for inventory related updates.",
		},
		Catalog: CatalogQueueConfig{
			Queue: str("rabbitmq.catalog.queue", "catalog.queue", "Queue used for listening to item updates coming from the catalog management system."),
			Dlt: ExchangeConfig{
				Exchange:    str("rabbitmq.catalog.dlt.exchange", "catalog.dlt.exchange", "Exchange used for posting messages to the dead letter topic."),
				Description: "Configurations for the catalog dead letter topic, where messages that fail to be read from the queue are written.",
			},
			Description: "RabbitMQ settings for catalog item updates.",
		},
		Description: "RabbitMQ configurations.",
	}

	cfg.Rental = RentalConfig{
		TimeZone:        str("rental.timeZone", "UTC", "IANA time zone that defines the store's calendar day. Examples: UTC, America/Chicago"),
		RestockOnReturn: boolean("rental.restockOnReturn", false, "Whether a returned rental puts its copy back into stock."),
		MaxRentAgeYears: integer("rental.maxRentAgeYears", 1, "Items released more than this many years ago may only be sold."),
		Description:     "Rental rules.",
	}

	cfg.Http = HttpConfig{
		AllowedOrigins:  strs("http.allowedOrigins", []string{"http://localhost*", "https://localhost*"}, "Origins allowed to make cross origin requests."),
		AuthFailures:    integer("http.authFailures", 5, "Failed logins allowed per user before requests are throttled."),
		AuthFailureWait: str("http.authFailureWait", "1m", "How long it takes for a single failed login to be forgiven."),
		GenerateRoutes:  boolean("http.generateRoutes", false, "Print the route documentation on startup."),
		Description:     "HTTP server settings.",
	}

	cfg.Security = SecurityConfig{
		AdminUser:   str("security.adminUser", "admin", "Employee created on startup with admin rights when it does not already exist."),
		AdminPass:   str("security.adminPass", "admin", "Password of the bootstrap admin employee."),
		Description: "Bootstrap credentials.",
	}

	cfg.Tracing = TracingConfig{
		Enabled:     boolean("tracing.enabled", false, "Whether spans are exported to an OTLP collector."),
		Endpoint:    str("tracing.endpoint", "localhost:4318", "host:port of the OTLP HTTP collector."),
		Description: "OpenTelemetry tracing settings.",
	}

	return cfg
}
