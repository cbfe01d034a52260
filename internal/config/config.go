// Package config loads riskcore's recognized configuration constants via
// Viper, replacing a plain getEnv/getEnvInt/getEnvBool pattern with bound
// environment variables over the same fixed defaults.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// ClassConfig holds the class-id sets used to route tracks and to select
// the rotated-box derivation path.
type ClassConfig struct {
	SpecificClasses map[int]struct{} // classes using mask-derived rotated boxes
	VehicleClasses  map[int]struct{}
	MaterialClasses map[int]struct{}
	FallZoneClasses map[int]struct{}
}

// TrackerConfig holds the ByteTrack tuning parameters.
type TrackerConfig struct {
	TrackThresh  float64
	TrackBuffer  int
	MatchThresh  float64
	MOT20        bool
	PositionW    float64 // POSITION_WEIGHT
	MaxCenterDist float64
}

// MaterialConfig holds the material-risk engine's fixed constants.
type MaterialConfig struct {
	HistorySize              int
	MinFramesForDetection    int
	FirstAlertThreshold      float64
	FirstAlertConsecutive    int
	SecondAlertRatioFromInit float64
	SecondAlertRatioFromAlert float64
	SecondAlertConsecutive   int
	MinDetectionConfidence   float64
	MaxMissingFrames         int
}

// FallZoneConfig holds the fall-zone engine's fixed constants.
type FallZoneConfig struct {
	FirstAlertScoreThreshold     int
	BottomPointDisappearThreshold float64 // fraction of IMG_HEIGHT
	MaxMissingFrames             int
	BottomPointDistance          float64
	ImgHeight                    float64
	StairAngleDeg                float64
	StairLandingHeight           float64
	MaxAge                       int
}

// VehicleConfig holds the vehicle-risk engine's fixed constants.
type VehicleConfig struct {
	WarningThreshold       float64
	DangerThreshold        float64
	MinDetectionConfidence float64
	UserLookedAwayFrames   int
	MaxAge                 int
	MinValidFrames         int
}

// AccidentConfig holds the accident detector's fixed constants.
type AccidentConfig struct {
	MotionMagnitudeThreshold float64
	SafeThreshold            int
	HistoryLen               int
	BaseIntervalMS           float64
	MaxCorners               int
	QualityLevel             float64
	MinDistance              float64
	BlockSize                int
	FlowWinSize              int
	FlowMaxLevel             int
	RansacReprojThreshold    float64
	RansacMaxIters           int
	RansacConfidence         float64
}

// CameraIntrinsics is the 3x3 matrix used to decompose a homography into a
// roll angle. Kept configurable even though the fixed default matches a
// single hardcoded camera.
type CameraIntrinsics struct {
	FX, FY, CX, CY float64
}

// Config is the full set of recognized configuration constants.
type Config struct {
	LogLevel  string
	LogFormat string

	RedisURL    string
	Concurrency int

	Classes   ClassConfig
	Tracker   TrackerConfig
	Material  MaterialConfig
	FallZone  FallZoneConfig
	Vehicle   VehicleConfig
	Accident  AccidentConfig
	Intrinsics CameraIntrinsics
}

func intSet(vals ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

// Default returns riskcore's fixed configuration constants.
func Default() Config {
	return Config{
		LogLevel:    "info",
		LogFormat:   "text",
		RedisURL:    "redis://localhost:6379/0",
		Concurrency: 10,

		Classes: ClassConfig{
			SpecificClasses: intSet(3),
			VehicleClasses:  intSet(1, 2),
			MaterialClasses: intSet(3),
			FallZoneClasses: intSet(4, 5),
		},
		Tracker: TrackerConfig{
			TrackThresh:   0.5,
			TrackBuffer:   30,
			MatchThresh:   0.8,
			MOT20:         false,
			PositionW:     0.4,
			MaxCenterDist: 80,
		},
		Material: MaterialConfig{
			HistorySize:               30,
			MinFramesForDetection:     5,
			FirstAlertThreshold:       1.10,
			FirstAlertConsecutive:     3,
			SecondAlertRatioFromInit:  1.35,
			SecondAlertRatioFromAlert: 1.25,
			SecondAlertConsecutive:    3,
			MinDetectionConfidence:    0.7,
			MaxMissingFrames:          10,
		},
		FallZone: FallZoneConfig{
			FirstAlertScoreThreshold:      2,
			BottomPointDisappearThreshold: 0.99,
			MaxMissingFrames:              14,
			BottomPointDistance:           15,
			ImgHeight:                     640,
			StairAngleDeg:                 35,
			StairLandingHeight:            287,
			MaxAge:                        70,
		},
		Vehicle: VehicleConfig{
			WarningThreshold:       0.3,
			DangerThreshold:        0.6,
			MinDetectionConfidence: 0.5,
			UserLookedAwayFrames:   7,
			MaxAge:                 30,
			MinValidFrames:         2,
		},
		Accident: AccidentConfig{
			MotionMagnitudeThreshold: 75.0,
			SafeThreshold:            15,
			HistoryLen:               20,
			BaseIntervalMS:           1000.0 / 7.0,
			MaxCorners:               300,
			QualityLevel:             0.1,
			MinDistance:              7,
			BlockSize:                7,
			FlowWinSize:              15,
			FlowMaxLevel:             2,
			RansacReprojThreshold:    20.0,
			RansacMaxIters:           100,
			RansacConfidence:         0.8,
		},
		Intrinsics: CameraIntrinsics{FX: 302.22, FY: 302.22, CX: 320, CY: 240},
	}
}

// Load reads configuration from the environment (prefix RISKCORE_) and an
// optional config file, overlaying spec-mandated defaults. Unset fields
// keep the compiled-in default.
func Load(configFile string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("RISKCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}

	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		cfg.LogFormat = v.GetString("log_format")
	}
	if v.IsSet("redis_url") {
		cfg.RedisURL = v.GetString("redis_url")
	}
	if v.IsSet("concurrency") {
		cfg.Concurrency = v.GetInt("concurrency")
	}

	return cfg, nil
}
