package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/pion/webrtc/v4"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=5000"`
	GrpcPort             int           `env:"GRPC_PORT,default=5001"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH"`
	HistoryCapacity      int           `env:"HISTORY_CAPACITY,default=100"`
	HistoryOnJoin        int           `env:"HISTORY_ON_JOIN,default=50"`
	MaxMessageLength     int           `env:"MAX_MESSAGE_LENGTH,default=500"`
	CommandBufferSize    int           `env:"COMMAND_BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	TypingTimeout        time.Duration `env:"TYPING_TIMEOUT,default=3s"`
	TypingSweepInterval  time.Duration `env:"TYPING_SWEEP_INTERVAL,default=500ms"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s"`
	TelemetryInterval    time.Duration `env:"TELEMETRY_INTERVAL,default=1m"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=10"`
	CommunityScope       string        `env:"COMMUNITY_SCOPE,default=community"`
	IceServers           string        `env:"ICE_SERVERS,default=stun:stun.l.google.com:19302"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,default=*"`
	AuthSecret           string        `env:"AUTH_SECRET"`
	AssistantURL         string        `env:"ASSISTANT_URL"`
	AssistantAPIKey      string        `env:"ASSISTANT_API_KEY"`
	AssistantModel       string        `env:"ASSISTANT_MODEL"`
	AssistantTimeout     time.Duration `env:"ASSISTANT_TIMEOUT,default=30s"`
	AssistantWorkers     int           `env:"ASSISTANT_WORKERS,default=4"`
	AssistantQueueSize   int           `env:"ASSISTANT_QUEUE_SIZE,default=64"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if config.HistoryOnJoin > config.HistoryCapacity {
		return Config{}, fmt.Errorf("HISTORY_ON_JOIN (%d) must not exceed HISTORY_CAPACITY (%d)",
			config.HistoryOnJoin, config.HistoryCapacity)
	}
	return config, nil
}

// ICEServerList turns "stun:a,turn:b|user|pass" into pion ICE servers.
// A TURN entry carries its credentials after pipes.
func (c Config) ICEServerList() []webrtc.ICEServer {
	var out []webrtc.ICEServer
	for _, entry := range split(c.IceServers) {
		parts := strings.Split(entry, "|")
		server := webrtc.ICEServer{URLs: []string{parts[0]}}
		if len(parts) == 3 {
			server.Username = parts[1]
			server.Credential = parts[2]
		}
		out = append(out, server)
	}
	return out
}

func (c Config) Origins() []string {
	return split(c.AllowedOrigins)
}

func split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
