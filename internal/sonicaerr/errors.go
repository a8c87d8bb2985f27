// Package sonicaerr defines the error kinds and process exit codes shared
// across Sonica's pipeline stages.
package sonicaerr

import "fmt"

// Kind identifies which stage of the pipeline failed.
type Kind int

const (
	// KindUsage covers argument/flag validation failures.
	KindUsage Kind = iota
	KindDecode
	KindAnalysis
	KindGPUInit
	KindShaderCompile
	KindEffectNotFound
	KindTemplateNotFound
	KindParam
	KindDeviceLost
	KindEncode
	KindEncoderGone
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "UsageError"
	case KindDecode:
		return "DecodeError"
	case KindAnalysis:
		return "AnalysisError"
	case KindGPUInit:
		return "GpuInitError"
	case KindShaderCompile:
		return "ShaderCompileError"
	case KindEffectNotFound:
		return "EffectNotFound"
	case KindTemplateNotFound:
		return "TemplateNotFound"
	case KindParam:
		return "ParamError"
	case KindDeviceLost:
		return "DeviceLost"
	case KindEncode:
		return "EncodeError"
	case KindEncoderGone:
		return "EncoderGone"
	case KindCancelled:
		return "Cancelled"
	default:
		return "UnknownError"
	}
}

// ExitCode returns the process exit code for the §6 table.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage:
		return 2
	case KindDecode:
		return 3
	case KindGPUInit:
		return 4
	case KindShaderCompile, KindEffectNotFound, KindTemplateNotFound, KindParam:
		return 5
	case KindDeviceLost, KindEncode, KindEncoderGone:
		return 6
	case KindCancelled:
		return 130
	default:
		return 1
	}
}

// Error wraps an underlying error with a Kind and optional diagnostic
// context (the offending name, path, or backend message).
type Error struct {
	Kind Kind
	Name string // template, effect, or parameter name, when relevant
	Path string // file path, when relevant
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	case e.Name != "":
		return fmt.Sprintf("%s: %q: %v", e.Kind, e.Name, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode reports this error's process exit code.
func (e *Error) ExitCode() int { return e.Kind.ExitCode() }

func New(kind Kind, err error) *Error { return &Error{Kind: kind, Err: err} }

func WithPath(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func WithName(kind Kind, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}
