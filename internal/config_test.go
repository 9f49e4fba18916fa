package internal

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	config, err := Load()

	req.NoError(err)
	req.Equal(100, config.HistoryCapacity)
	req.Equal(50, config.HistoryOnJoin)
	req.Equal(500, config.MaxMessageLength)
	req.Equal(3*time.Second, config.TypingTimeout)
	req.Equal("community", config.CommunityScope)
	req.Equal(time.Minute, config.TelemetryInterval)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "7000")
	t.Setenv("TYPING_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://app.officepulse.io, http://localhost:3000")

	config, err := Load()

	req.NoError(err)
	req.Equal(7000, config.Port)
	req.Equal(5*time.Second, config.TypingTimeout)
	req.Equal([]string{"https://app.officepulse.io", "http://localhost:3000"}, config.Origins())
}

func TestLoad_HistoryOnJoinTooLarge(t *testing.T) {
	t.Setenv("HISTORY_CAPACITY", "10")
	t.Setenv("HISTORY_ON_JOIN", "20")

	_, err := Load()

	require.Error(t, err)
}

func TestConfig_ICEServerList(t *testing.T) {
	config := Config{IceServers: "stun:stun.l.google.com:19302, turn:turn.corp.com:3478|bob|secret"}

	require.Equal(t, []webrtc.ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
		{URLs: []string{"turn:turn.corp.com:3478"}, Username: "bob", Credential: "secret"},
	}, config.ICEServerList())
}
