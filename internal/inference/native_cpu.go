//go:build !whisper_gpu

package inference

// hasGPUSupport is false by default: without the whisper_gpu build tag,
// the bound whisper.cpp library has no GPU execution provider.
const hasGPUSupport = false
