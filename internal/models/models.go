// Package models resolves the on-disk location of speech-recognition
// model files and checks whether they're present. Fetching them is out
// of scope: the inference engine construction fails with a clear error
// when a required file is missing, and the operator is expected to have
// placed the files there beforehand.
package models

import (
	"os"
	"path/filepath"
)

// EngineParakeet and EngineMoonshine name the two bundled engine variants,
// mirroring the model directories each expects.
const (
	EngineParakeet = "parakeet"
	EngineMoonshine = "moonshine"
)

// parakeetFiles and moonshineFiles are the required files for each engine,
// relative to Dir(dataHome, engine).
var (
	parakeetFiles  = []string{"encoder.onnx", "decoder_joint.onnx", "tokenizer.json"}
	moonshineFiles = []string{"encoder_model_quantized.onnx", "decoder_model_merged_quantized.onnx", "tokenizer.json"}
)

// BaseDir returns the root model directory under dataHome
// (dataHome/live-captions/models). dataHome is normally the value of
// os.UserCacheDir's sibling data-home equivalent, passed in explicitly so
// callers can override it in tests.
func BaseDir(dataHome string) string {
	return filepath.Join(dataHome, "live-captions", "models")
}

// Dir returns the model directory for the named engine variant.
func Dir(dataHome, engine string) string {
	return filepath.Join(BaseDir(dataHome), engine)
}

// RequiredFiles returns the file names Present checks for the named
// engine variant. An unknown engine name yields an empty slice.
func RequiredFiles(engine string) []string {
	switch engine {
	case EngineParakeet:
		return append([]string(nil), parakeetFiles...)
	case EngineMoonshine:
		return append([]string(nil), moonshineFiles...)
	default:
		return nil
	}
}

// Present reports whether every named file exists under dir.
func Present(dir string, files ...string) bool {
	for _, f := range files {
		info, err := os.Stat(filepath.Join(dir, f))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// EngineReady reports whether the named engine's required model files
// are all present under dataHome.
func EngineReady(dataHome, engine string) bool {
	files := RequiredFiles(engine)
	if len(files) == 0 {
		return false
	}
	return Present(Dir(dataHome, engine), files...)
}
