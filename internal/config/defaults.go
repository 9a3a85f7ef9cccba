package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Storage: StorageConfig{
			Backend: "dynamodb",
			Table:   "AI-Assistant-Users",
			DBPath:  "~/.assistbot/todo.db",
		},
		Vision: VisionConfig{
			Backend:                "rekognition",
			MaxLabels:              10,
			MinConfidence:          75,
			DownloadTimeoutSeconds: 10,
			MaxImageBytes:          5 << 20, // Rekognition inline image limit
		},
		Model: ModelConfig{
			// Empty ModelID selects the provider's own default model.
			Provider:        "bedrock",
			ProtocolVersion: "bedrock-2023-05-31",
			MaxTokens:       1024,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Path: "/message",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
