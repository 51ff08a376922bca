package actions

import "fmt"

// PushMedia copies a local image to the device and scans it into the gallery
type PushMedia struct {
	Source      string `yaml:"source"`
	Folder      string `yaml:"folder"`
	Name        string `yaml:"name"`
	SetVariable string `yaml:"set_variable,omitempty"` // Default: pushed_path
}

func (a *PushMedia) Validate(ab *ActionBuilder) error {
	switch {
	case a.Source == "":
		return fmt.Errorf("source is required")
	case a.Folder == "":
		return fmt.Errorf("folder is required")
	case a.Name == "":
		return fmt.Errorf("name is required")
	}
	return nil
}

func (a *PushMedia) Build(ab *ActionBuilder) *ActionBuilder {
	target := a.SetVariable
	if target == "" {
		target = "pushed_path"
	}

	return ab.add(Step{
		name: "PushMedia",
		execute: func(bot BotInterface) error {
			var fields [3]string
			for i, raw := range []string{a.Source, a.Folder, a.Name} {
				value, err := InterpolateString(raw, bot)
				if err != nil {
					return err
				}
				fields[i] = value
			}

			remote, err := bot.Device().PushMedia(bot.Context(), fields[0], fields[1], fields[2])
			if err != nil {
				return err
			}
			bot.Variables().Set(target, remote)
			return nil
		},
		issue: a.Validate(ab),
	})
}

// RemoveFile deletes a file from the device
type RemoveFile struct {
	Path string `yaml:"path"`
}

func (a *RemoveFile) Validate(ab *ActionBuilder) error {
	if a.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

func (a *RemoveFile) Build(ab *ActionBuilder) *ActionBuilder {
	return ab.add(Step{
		name: "RemoveFile",
		execute: func(bot BotInterface) error {
			path, err := InterpolateString(a.Path, bot)
			if err != nil {
				return err
			}
			return bot.Device().Remove(bot.Context(), path)
		},
		issue: a.Validate(ab),
	})
}
