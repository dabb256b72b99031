package config

const (
	defaultConfigPath             = "~/.config/coverfill/config.toml"
	defaultStateDir               = "~/.local/share/coverfill"
	defaultLogDir                 = "~/.local/share/coverfill/logs"
	defaultLogRetentionDays       = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultSteamGridDBBaseURL     = "https://www.steamgriddb.com/api/v2"
	defaultSteamGridDBDimensions  = "600x900"
	defaultSteamGridDBRate        = 4.0
	defaultIGDBBaseURL            = "https://api.igdb.com/v4"
	defaultIGDBTokenURL           = "https://id.twitch.tv/oauth2/token"
	defaultIGDBRate               = 4.0
	defaultSuggestionLimit        = 5
	minSuggestionLimit            = 5
	maxSuggestionLimit            = 10
	defaultProviderTimeout        = 15
	defaultStepDelayMillis        = 100
	defaultTranslationBaseURL     = "https://api.mymemory.translated.net"
	defaultTranslationSource      = "en"
	defaultTranslationTarget      = "es"
	defaultTranslationMaxChars    = 500
	defaultTranslationMinChars    = 10
	defaultNotifyRequestTimeout   = 10
	defaultNotifyMessageDelayMill = 2000
)

// ProviderSteamGridDB and ProviderIGDB name the lookup backends accepted in
// providers.order.
const (
	ProviderSteamGridDB = "steamgriddb"
	ProviderIGDB        = "igdb"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		SteamGridDB: SteamGridDB{
			BaseURL:           defaultSteamGridDBBaseURL,
			Dimensions:        defaultSteamGridDBDimensions,
			RequestsPerSecond: defaultSteamGridDBRate,
		},
		IGDB: IGDB{
			BaseURL:           defaultIGDBBaseURL,
			TokenURL:          defaultIGDBTokenURL,
			RequestsPerSecond: defaultIGDBRate,
		},
		Providers: Providers{
			Order:           []string{ProviderSteamGridDB, ProviderIGDB},
			SuggestionLimit: defaultSuggestionLimit,
			RequestTimeout:  defaultProviderTimeout,
		},
		Engine: Engine{
			StepDelayMillis: defaultStepDelayMillis,
		},
		Translation: Translation{
			BaseURL:        defaultTranslationBaseURL,
			SourceLanguage: defaultTranslationSource,
			TargetLanguage: defaultTranslationTarget,
			MaxChars:       defaultTranslationMaxChars,
			MinChars:       defaultTranslationMinChars,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			MessageDelayMillis: defaultNotifyMessageDelayMill,
			Items:              true,
			RunSummary:         true,
			Errors:             true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
