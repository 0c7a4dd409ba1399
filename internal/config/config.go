// Package config holds the typed application configuration. All recognized
// settings are named struct fields; unrecognized keys in the config file are
// left alone by viper and pass through to whoever asks for them.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/examdesk/examdesk/internal/model"
)

// UISettings carries window and font parameters for the desktop shell.
// The server never interprets them; they are stored and handed back as-is.
type UISettings struct {
	WindowWidth     int    `mapstructure:"window_width"`
	WindowHeight    int    `mapstructure:"window_height"`
	FontFamily      string `mapstructure:"font_family"`
	FontSizeNormal  int    `mapstructure:"font_size_normal"`
	FontSizeHeading int    `mapstructure:"font_size_heading"`
	FontSizeTitle   int    `mapstructure:"font_size_title"`
}

// Config is the application configuration.
type Config struct {
	ExamDuration        int                `mapstructure:"exam_duration"` // seconds
	QuestionsPerExam    int                `mapstructure:"questions_per_exam"`
	PassingPercentage   int                `mapstructure:"passing_percentage"`
	AllowReview         bool               `mapstructure:"allow_review"`
	RandomizeQuestions  bool               `mapstructure:"randomize_questions"`
	Theme               string             `mapstructure:"theme"`
	DatabasePath        string             `mapstructure:"database_path"`
	ExportDir           string             `mapstructure:"export_dir"`
	AutoSaveAnswers     bool               `mapstructure:"auto_save_answers"`
	ShowTimerWarning    bool               `mapstructure:"show_timer_warning"`
	TimerWarningMinutes int                `mapstructure:"timer_warning_minutes"`
	Categories          []string           `mapstructure:"categories"`
	DifficultyLevels    []model.Difficulty `mapstructure:"difficulty_levels"`
	PointsPerQuestion   map[string]int     `mapstructure:"points_per_question"`
	UI                  UISettings         `mapstructure:"ui_settings"`

	// Exam filters set at runtime via flags, not the config file.
	Category   string           `mapstructure:"-"`
	Difficulty model.Difficulty `mapstructure:"-"`
}

// SetDefaults registers the default value for every recognized key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("exam_duration", 600)
	v.SetDefault("questions_per_exam", 10)
	v.SetDefault("passing_percentage", 60)
	v.SetDefault("allow_review", true)
	v.SetDefault("randomize_questions", true)
	v.SetDefault("theme", "light")
	v.SetDefault("database_path", "examdesk.db")
	v.SetDefault("export_dir", "exports")
	v.SetDefault("auto_save_answers", true)
	v.SetDefault("show_timer_warning", true)
	v.SetDefault("timer_warning_minutes", 2)
	v.SetDefault("categories", []string{"General", "Mathematics", "Science", "Programming", "Geography", "History"})
	v.SetDefault("difficulty_levels", []string{"Easy", "Medium", "Hard"})
	v.SetDefault("points_per_question", map[string]int{"Easy": 1, "Medium": 2, "Hard": 3})
	v.SetDefault("ui_settings.window_width", 900)
	v.SetDefault("ui_settings.window_height", 700)
	v.SetDefault("ui_settings.font_family", "Arial")
	v.SetDefault("ui_settings.font_size_normal", 12)
	v.SetDefault("ui_settings.font_size_heading", 18)
	v.SetDefault("ui_settings.font_size_title", 24)
}

// Load unmarshals the merged viper state into a Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// DefaultPoints returns the configured point value for a difficulty,
// falling back to 1 when the level is not in the table.
func (c Config) DefaultPoints(d model.Difficulty) int {
	if p, ok := c.PointsPerQuestion[string(d)]; ok && p > 0 {
		return p
	}
	return 1
}
