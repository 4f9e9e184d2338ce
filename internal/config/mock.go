package config

import "strconv"

// MockAuthorityConfig: настройки имитатора API эмитента
type MockAuthorityConfig struct {
	ListenAddress string
	Username      string
	Password      string
	// Сколько опросов статуса заказ/отчёт проводит в ожидании
	OrderReadyAfter  int
	ReportReadyAfter int
	RejectOrders     bool
	// GTIN, отчёты по которым отклоняются при создании или не подтверждаются никогда
	RejectReportGTINs []string
	StuckReportGTINs  []string
	Error500Prob      float64
	Tracing           TracingConfig
}

func LoadMockConfig() MockAuthorityConfig {
	return MockAuthorityConfig{
		ListenAddress:     getEnv("LISTEN_ADDRESS", ":8090"),
		Username:          getEnv("MOCK_USERNAME", "demo"),
		Password:          getEnv("MOCK_PASSWORD", "demo"),
		OrderReadyAfter:   getEnvAsInt("MOCK_ORDER_READY_AFTER", 2),
		ReportReadyAfter:  getEnvAsInt("MOCK_REPORT_READY_AFTER", 1),
		RejectOrders:      getEnvAsBool("MOCK_REJECT_ORDERS", false),
		RejectReportGTINs: splitList(getEnv("MOCK_REJECT_REPORT_GTINS", "")),
		StuckReportGTINs:  splitList(getEnv("MOCK_STUCK_REPORT_GTINS", "")),
		Error500Prob:      getEnvAsFloat("ERROR_500_PROBABILITY", 0),
		Tracing: TracingConfig{
			ExporterURL:    getEnv("OTEL_EXPORTER_URL", ""),
			SampleRate:     1.0,
			DomainName:     getEnv("APP_DOMAIN_NAME", "circulation"),
			ServiceName:    getEnv("APP_SERVICE_NAME", "authority-mock"),
			ServiceVersion: getEnv("APP_SERVICE_VERSION", "1.0.0"),
			InstanceID:     getEnv("APP_INSTANCE_ID", generateInstanceID()),
		},
	}
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
