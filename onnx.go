package medseg

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type OnnxConfig struct {
	SessionOptions *ort.SessionOptions

	// required
	OnnxRuntimeLibPath string // path to onnxruntime.dll (or .so, .dylib)
	// optional
	UseCuda    bool // enable the CUDA execution provider
	NumThreads int  // ONNX intra-op threads, defaults to the CPU core count
}

var (
	initErr error
	once    sync.Once
)

// New initializes the shared ONNX Runtime environment. The environment is
// created once per process; every call still gets its own session options.
func (cfg *OnnxConfig) New() error {
	if cfg.OnnxRuntimeLibPath == "" {
		return fmt.Errorf("OnnxRuntimeLibPath must not be empty")
	}
	once.Do(func() {
		ort.SetSharedLibraryPath(cfg.OnnxRuntimeLibPath)
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return fmt.Errorf("initializing ONNX Runtime environment: %w", initErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return err
	}
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return err
		}
	}

	if cfg.UseCuda {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("creating CUDAProviderOptions: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return fmt.Errorf("appending CUDA execution provider: %w", err)
		}
	}
	cfg.SessionOptions = options

	return nil
}

// DefaultLibraryPath picks the onnxruntime shared library for the current platform.
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	// windows onnxruntime.dll
	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so" // fall back to linux amd64
	}

	// ./lib/onnxruntime + _ + amd64/arm64 + . + so/dylib
	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
