// Package config defines the service's environment-driven configuration.
package config

import "time"

// Config holds every environment-tunable setting for the trustscore
// service. Fields are grouped by concern, matching how the service itself
// is organized.
type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"trustscore-api"`
	RunMode                       string   `env:"RUN_MODE" env-default:"api"` // api | worker | refresh_once
	Port                          int      `env:"PORT" env-default:"8080"`
	Host                          string   `env:"HOST" env-default:"0.0.0.0"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"15"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database (durable repository backend). Absence of DatabaseHost means
	// the service falls back to the in-memory repository (spec §4.4).
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"trustscore"`
	DatabaseSSLMode              string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns         int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns         int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime      time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10m"`
	DatabaseMigrationFolderPath  string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/migrations/postgres"`
	DatabaseMigrationAutoRollback bool         `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Ingestion orchestrator (§4.5).
	WorkerRefreshInterval time.Duration `env:"WORKER_REFRESH_INTERVAL" env-default:"6h"`

	// Per-connector settings (§4.2, §6). One group per source family.
	//
	// LA County is joined from three EMS FeatureServer layers: inventory
	// (facility roster), inspections (per-visit score/date), and
	// violations (per-inspection line items, folded into a provisional
	// score when an inspection carries no SCORE of its own).
	LACountyInventoryURL   string        `env:"LACOUNTY_INVENTORY_URL" env-default:"https://services1.arcgis.com/lacounty/rest/services/EMS/FeatureServer/0/query"`
	LACountyInspectionsURL string        `env:"LACOUNTY_INSPECTIONS_URL" env-default:"https://services1.arcgis.com/lacounty/rest/services/EMS/FeatureServer/1/query"`
	LACountyViolationsURL  string        `env:"LACOUNTY_VIOLATIONS_URL" env-default:"https://services1.arcgis.com/lacounty/rest/services/EMS/FeatureServer/2/query"`
	LACountyPageSize       int           `env:"LACOUNTY_PAGE_SIZE" env-default:"1000"`
	LACountyMaxRecords     int           `env:"LACOUNTY_MAX_RECORDS" env-default:"0"` // 0 = unbounded
	LACountyTimeout        time.Duration `env:"LACOUNTY_TIMEOUT" env-default:"30s"`

	SanDiegoBaseURL    string        `env:"SANDIEGO_BASE_URL" env-default:"https://data.sandiego.gov/resource/restaurant-inspections.json"`
	SanDiegoAppToken   string        `env:"SANDIEGO_APP_TOKEN" env-default:""`
	SanDiegoPageSize   int           `env:"SANDIEGO_PAGE_SIZE" env-default:"1000"`
	SanDiegoMaxRecords int           `env:"SANDIEGO_MAX_RECORDS" env-default:"0"`
	SanDiegoTimeout    time.Duration `env:"SANDIEGO_TIMEOUT" env-default:"30s"`

	LongBeachListingURL string        `env:"LONGBEACH_LISTING_URL" env-default:"https://www.longbeach.gov/health/environmental-health-bureau/food-safety/restaurant-closures/"`
	LongBeachTimeout    time.Duration `env:"LONGBEACH_TIMEOUT" env-default:"20s"`

	LivesRiversideBaseURL      string        `env:"LIVES_RIVERSIDE_BASE_URL" env-default:"https://services.arcgis.com/riverside/rest/services/LIVES/FeatureServer/0/query"`
	LivesSanBernardinoBaseURL  string        `env:"LIVES_SANBERNARDINO_BASE_URL" env-default:"https://services.arcgis.com/sanbernardino/rest/services/LIVES/FeatureServer/0/query"`
	LivesPageSize              int           `env:"LIVES_PAGE_SIZE" env-default:"1000"`
	LivesMaxRecords            int           `env:"LIVES_MAX_RECORDS" env-default:"0"`
	LivesTimeout               time.Duration `env:"LIVES_TIMEOUT" env-default:"30s"`

	CPRAOrangeCountyCSVURL  string        `env:"CPRA_ORANGE_COUNTY_CSV_URL" env-default:""`
	CPRAOrangeCountyLiveURL string        `env:"CPRA_ORANGE_COUNTY_LIVE_URL" env-default:"https://ochealthinfo.com/opendata/restaurants.json"`
	CPRAPasadenaCSVURL      string        `env:"CPRA_PASADENA_CSV_URL" env-default:""`
	CPRAPasadenaLiveURL     string        `env:"CPRA_PASADENA_LIVE_URL" env-default:"https://www.cityofpasadena.net/opendata/restaurants.json"`
	CPRATimeout             time.Duration `env:"CPRA_TIMEOUT" env-default:"30s"`

	// Vote service rate limits (§4.7).
	VotePerFacilityInterval time.Duration `env:"VOTE_PER_FACILITY_INTERVAL" env-default:"60s"`
	VoteGlobalLimit         int           `env:"VOTE_GLOBAL_LIMIT" env-default:"20"`
	VoteGlobalWindow        time.Duration `env:"VOTE_GLOBAL_WINDOW" env-default:"10m"`

	// Event emitter (analytics shim integration, SPEC_FULL §3).
	KafkaBrokers          []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaIngestionTopic   string   `env:"KAFKA_INGESTION_TOPIC" env-default:"trustscore.ingestion-events"`
	KafkaEventsEnabled    bool     `env:"KAFKA_EVENTS_ENABLED" env-default:"false"`
}
