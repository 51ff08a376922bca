package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"jordanella.com/offer-story-go/internal/bot"
)

// LoadFromINI loads configuration from a settings file. Missing keys keep
// their DefaultConfig value.
func LoadFromINI(path string) (*bot.Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	def := bot.DefaultConfig()
	config := &bot.Config{}

	// Device
	section := cfg.Section("ADB")
	config.ADB.Path = section.Key("path").MustString(def.ADB.Path)
	config.ADB.Host = section.Key("host").MustString(def.ADB.Host)
	config.ADB.Port = section.Key("port").MustInt(def.ADB.Port)
	config.ADB.Serial = section.Key("serial").MustString(def.ADB.Serial)

	// Locating sprites
	section = cfg.Section("Locator")
	config.Locator.Confidence = section.Key("confidence").MustFloat64(def.Locator.Confidence)
	config.Locator.MaxAttempts = section.Key("max_attempts").MustInt(def.Locator.MaxAttempts)
	config.Locator.RetryDelayMS = section.Key("retry_delay_ms").MustInt(def.Locator.RetryDelayMS)
	config.Locator.Method = section.Key("method").MustString(def.Locator.Method)
	config.Locator.Grayscale = section.Key("grayscale").MustBool(def.Locator.Grayscale)
	config.Locator.Pyramid = section.Key("pyramid").MustInt(def.Locator.Pyramid)

	section = cfg.Section("Gestures")
	config.Gestures.Policy = section.Key("policy").MustString(def.Gestures.Policy)
	config.Gestures.Seed = section.Key("seed").MustUint64(def.Gestures.Seed)

	// Offer queue
	section = cfg.Section("Offers")
	config.Offers.InputFile = section.Key("input_file").MustString(def.Offers.InputFile)
	config.Offers.Header = section.Key("header").MustString(def.Offers.Header)
	config.Offers.Prefixes = splitList(section.Key("prefixes").MustString(strings.Join(def.Offers.Prefixes, ",")))
	config.Offers.SkipPosted = section.Key("skip_posted").MustBool(def.Offers.SkipPosted)

	section = cfg.Section("Scraper")
	config.Scraper.UserAgent = section.Key("user_agent").MustString(def.Scraper.UserAgent)
	config.Scraper.TimeoutMS = section.Key("timeout_ms").MustInt(def.Scraper.TimeoutMS)
	config.Scraper.Retries = section.Key("retries").MustInt(def.Scraper.Retries)

	// Story image
	section = cfg.Section("Image")
	config.Image.Template = section.Key("template").MustString(def.Image.Template)
	config.Image.Overlay = section.Key("overlay").MustString(def.Image.Overlay)
	config.Image.FontRegular = section.Key("font_regular").MustString(def.Image.FontRegular)
	config.Image.FontBold = section.Key("font_bold").MustString(def.Image.FontBold)
	config.Image.OutputDir = section.Key("output_dir").MustString(def.Image.OutputDir)
	config.Image.TempDir = section.Key("temp_dir").MustString(def.Image.TempDir)

	// Publishing
	section = cfg.Section("Story")
	config.Story.Routine = section.Key("routine").MustString(def.Story.Routine)
	config.Story.SpritesFile = section.Key("sprites_file").MustString(def.Story.SpritesFile)
	config.Story.StickerText = section.Key("sticker_text").MustString(def.Story.StickerText)
	config.Story.CloseFriends = section.Key("close_friends").MustBool(def.Story.CloseFriends)
	config.Story.TestCall = section.Key("test_call").MustBool(def.Story.TestCall)
	config.Story.PushFolder = section.Key("push_folder").MustString(def.Story.PushFolder)
	config.Story.PushName = section.Key("push_name").MustString(def.Story.PushName)
	config.Story.AppPackage = section.Key("app_package").MustString(def.Story.AppPackage)
	config.Story.TimeoutMS = section.Key("timeout_ms").MustInt(def.Story.TimeoutMS)

	section = cfg.Section("Database")
	config.Database.Enabled = section.Key("enabled").MustBool(def.Database.Enabled)
	config.Database.Path = section.Key("path").MustString(def.Database.Path)

	section = cfg.Section("Logging")
	config.Logging.Level = section.Key("level").MustString(def.Logging.Level)
	config.Logging.Dir = section.Key("dir").MustString(def.Logging.Dir)
	config.Logging.File = section.Key("file").MustString(def.Logging.File)

	return config, nil
}

// LoadOrDefault loads path when it exists and falls back to the defaults
// otherwise. The result is validated either way.
func LoadOrDefault(path string) (*bot.Config, error) {
	config := bot.DefaultConfig()
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if config, err = LoadFromINI(path); err != nil {
				return nil, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SaveToINI writes config to path, creating the folder if needed
func SaveToINI(config *bot.Config, path string) error {
	cfg := ini.Empty()

	section := cfg.Section("ADB")
	section.Key("path").SetValue(config.ADB.Path)
	section.Key("host").SetValue(config.ADB.Host)
	section.Key("port").SetValue(fmt.Sprintf("%d", config.ADB.Port))
	section.Key("serial").SetValue(config.ADB.Serial)

	section = cfg.Section("Locator")
	section.Key("confidence").SetValue(fmt.Sprintf("%g", config.Locator.Confidence))
	section.Key("max_attempts").SetValue(fmt.Sprintf("%d", config.Locator.MaxAttempts))
	section.Key("retry_delay_ms").SetValue(fmt.Sprintf("%d", config.Locator.RetryDelayMS))
	section.Key("method").SetValue(config.Locator.Method)
	section.Key("grayscale").SetValue(fmt.Sprintf("%t", config.Locator.Grayscale))
	section.Key("pyramid").SetValue(fmt.Sprintf("%d", config.Locator.Pyramid))

	section = cfg.Section("Gestures")
	section.Key("policy").SetValue(config.Gestures.Policy)
	section.Key("seed").SetValue(fmt.Sprintf("%d", config.Gestures.Seed))

	section = cfg.Section("Offers")
	section.Key("input_file").SetValue(config.Offers.InputFile)
	section.Key("header").SetValue(config.Offers.Header)
	section.Key("prefixes").SetValue(strings.Join(config.Offers.Prefixes, ","))
	section.Key("skip_posted").SetValue(fmt.Sprintf("%t", config.Offers.SkipPosted))

	section = cfg.Section("Scraper")
	section.Key("user_agent").SetValue(config.Scraper.UserAgent)
	section.Key("timeout_ms").SetValue(fmt.Sprintf("%d", config.Scraper.TimeoutMS))
	section.Key("retries").SetValue(fmt.Sprintf("%d", config.Scraper.Retries))

	section = cfg.Section("Image")
	section.Key("template").SetValue(config.Image.Template)
	section.Key("overlay").SetValue(config.Image.Overlay)
	section.Key("font_regular").SetValue(config.Image.FontRegular)
	section.Key("font_bold").SetValue(config.Image.FontBold)
	section.Key("output_dir").SetValue(config.Image.OutputDir)
	section.Key("temp_dir").SetValue(config.Image.TempDir)

	section = cfg.Section("Story")
	section.Key("routine").SetValue(config.Story.Routine)
	section.Key("sprites_file").SetValue(config.Story.SpritesFile)
	section.Key("sticker_text").SetValue(config.Story.StickerText)
	section.Key("close_friends").SetValue(fmt.Sprintf("%t", config.Story.CloseFriends))
	section.Key("test_call").SetValue(fmt.Sprintf("%t", config.Story.TestCall))
	section.Key("push_folder").SetValue(config.Story.PushFolder)
	section.Key("push_name").SetValue(config.Story.PushName)
	section.Key("app_package").SetValue(config.Story.AppPackage)
	section.Key("timeout_ms").SetValue(fmt.Sprintf("%d", config.Story.TimeoutMS))

	section = cfg.Section("Database")
	section.Key("enabled").SetValue(fmt.Sprintf("%t", config.Database.Enabled))
	section.Key("path").SetValue(config.Database.Path)

	section = cfg.Section("Logging")
	section.Key("level").SetValue(config.Logging.Level)
	section.Key("dir").SetValue(config.Logging.Dir)
	section.Key("file").SetValue(config.Logging.File)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config folder: %w", err)
		}
	}
	return cfg.SaveTo(path)
}
