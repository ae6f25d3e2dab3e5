package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	Client struct {
		TokenSecret   string
		TokenExpMin   int
		TokenSkewSecs int
	}
	Capture struct {
		Profile        string
		SilenceMs      int
		LevelThreshold float64
		SampleMs       int
		AutoListen     bool
	}
	Fusion struct {
		FaceWeight  float64
		VoiceWeight float64
	}
	Events struct {
		Limit int
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("client.token_exp_min", 720)
	v.SetDefault("client.token_skew_secs", 60)

	v.SetDefault("capture.profile", "desktop")
	v.SetDefault("capture.silence_ms", 1000)
	v.SetDefault("capture.level_threshold", 0.1)
	v.SetDefault("capture.sample_ms", 50)
	v.SetDefault("capture.auto_listen", true)

	v.SetDefault("fusion.face_weight", 0.6)
	v.SetDefault("fusion.voice_weight", 0.4)

	v.SetDefault("events.limit", 500)

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("client.token_secret", "CLIENT_TOKEN_SECRET")
	v.BindEnv("client.token_exp_min", "CLIENT_TOKEN_EXP_MIN")
	v.BindEnv("client.token_skew_secs", "CLIENT_TOKEN_SKEW_SECS")

	v.BindEnv("capture.profile", "CAPTURE_PROFILE")
	v.BindEnv("capture.silence_ms", "CAPTURE_SILENCE_MS")
	v.BindEnv("capture.level_threshold", "CAPTURE_LEVEL_THRESHOLD")
	v.BindEnv("capture.sample_ms", "CAPTURE_SAMPLE_MS")
	v.BindEnv("capture.auto_listen", "CAPTURE_AUTO_LISTEN")

	v.BindEnv("fusion.face_weight", "FUSION_FACE_WEIGHT")
	v.BindEnv("fusion.voice_weight", "FUSION_VOICE_WEIGHT")

	v.BindEnv("events.limit", "EVENTS_LIMIT")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")

	c.Client.TokenSecret = v.GetString("client.token_secret")
	c.Client.TokenExpMin = v.GetInt("client.token_exp_min")
	c.Client.TokenSkewSecs = v.GetInt("client.token_skew_secs")

	c.Capture.Profile = v.GetString("capture.profile")
	c.Capture.SilenceMs = v.GetInt("capture.silence_ms")
	c.Capture.LevelThreshold = v.GetFloat64("capture.level_threshold")
	c.Capture.SampleMs = v.GetInt("capture.sample_ms")
	c.Capture.AutoListen = v.GetBool("capture.auto_listen")

	c.Fusion.FaceWeight = v.GetFloat64("fusion.face_weight")
	c.Fusion.VoiceWeight = v.GetFloat64("fusion.voice_weight")

	c.Events.Limit = v.GetInt("events.limit")

	log.Printf("config loaded: port=%s profile=%s silence_ms=%d", c.Server.Port, c.Capture.Profile, c.Capture.SilenceMs)
	return c
}

func toString(v any) string { return fmt.Sprint(v) }
