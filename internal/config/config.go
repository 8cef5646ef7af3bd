// Package config handles rig configuration loading and management.
package config

// Config holds all settings of a rig session.
type Config struct {
	Animation AnimationConfig `yaml:"animation"`
	Data      DataConfig      `yaml:"data"`
	Export    ExportConfig    `yaml:"export"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AnimationConfig holds playback settings.
type AnimationConfig struct {
	Progress float32 `yaml:"progress"` // Frames advanced per tick
	Animated bool    `yaml:"animated"` // Sample keyframes; false keeps the rest basis
	Parallel bool    `yaml:"parallel"` // Deform meshes concurrently
}

// DataConfig holds rig data file paths.
type DataConfig struct {
	Armature  string       `yaml:"armature"`   // Armature description exported from Blender
	BoneModel string       `yaml:"bone_model"` // Optional OBJ drawn at every bone
	Meshes    []MeshConfig `yaml:"meshes"`
}

// MeshConfig names one skinned mesh and its weight file.
type MeshConfig struct {
	Name    string `yaml:"name"`
	OBJ     string `yaml:"obj"`
	Weights string `yaml:"weights"`
}

// Files returns every data file path the rig reads.
func (d DataConfig) Files() []string {
	var files []string
	if d.Armature != "" {
		files = append(files, d.Armature)
	}
	if d.BoneModel != "" {
		files = append(files, d.BoneModel)
	}
	for _, m := range d.Meshes {
		files = append(files, m.OBJ)
		if m.Weights != "" {
			files = append(files, m.Weights)
		}
	}
	return files
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Output string `yaml:"output"` // Path of the binary glTF written by export
	// RestBones also writes every bone model at the bone's rest transform.
	RestBones bool `yaml:"rest_bones"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Animation: AnimationConfig{
			Progress: 0.65,
			Animated: true,
			Parallel: false,
		},
		Data: DataConfig{
			Armature: "armature.txt",
		},
		Export: ExportConfig{
			Output: "pose.glb",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
