//go:build whisper_gpu

package inference

// hasGPUSupport is true only when this binary was built with the
// whisper_gpu tag, linking a whisper.cpp build with CUDA/Metal support.
const hasGPUSupport = true
