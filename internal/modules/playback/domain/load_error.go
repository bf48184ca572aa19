package domain

import "fmt"

type ErrorKind string

const (
	KindDirectoryNotFound     ErrorKind = "DirectoryNotFound"
	KindDirectoryInvalid      ErrorKind = "DirectoryInvalidError"
	KindMissingSkeletonOrJSON ErrorKind = "MissingSkeletonOrJson"
	KindAssetLoading          ErrorKind = "AssetLoadingError"
	KindAssetNotFound         ErrorKind = "AssetNotFoundError"
	KindAssetTooManyRequests  ErrorKind = "AssetTooManyRequestsError"
	KindSkeleton              ErrorKind = "SkeletonError"
	KindSkeletonNotFound      ErrorKind = "SkeletonNotFound"
	KindCharacterIDNotFound   ErrorKind = "CharacterIdNotFound"
	KindInitialization        ErrorKind = "InitializationError"
	KindPlayer                ErrorKind = "PlayerError"
	KindDownload              ErrorKind = "DownloadError"
	KindUnknown               ErrorKind = "UnknownError"
)

// Retryable reports whether a plain reload can reasonably succeed for this kind.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindAssetLoading, KindAssetNotFound, KindAssetTooManyRequests, KindInitialization,
		KindPlayer, KindDownload, KindUnknown:
		return true
	default:
		return false
	}
}

type RecoveryKind string

const RecoveryFetchMissingSkeleton RecoveryKind = "fetch_missing_skeleton"

type RecoveryAction struct {
	Kind       RecoveryKind `json:"kind"`
	FolderPath string       `json:"folder_path"`
}

// LoadError is the only failure shape that leaves the orchestrator.
type LoadError struct {
	Kind         ErrorKind
	Detail       string
	FailedAssets []string
	// Diagnostic holds service-supplied message parts exactly as received.
	Diagnostic   []string
	Retryable    bool
	Recovery     *RecoveryAction
	Err          error
}

func NewLoadError(kind ErrorKind, detail string) *LoadError {
	return &LoadError{Kind: kind, Detail: detail, Retryable: kind.Retryable()}
}

func (e *LoadError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) WithAssets(assets []string) *LoadError {
	e.FailedAssets = assets
	return e
}

func (e *LoadError) WithDiagnostic(parts ...string) *LoadError {
	e.Diagnostic = parts
	return e
}

func (e *LoadError) WithCause(err error) *LoadError {
	e.Err = err
	return e
}

func MissingSkeletonOrJSON(folder, detail string) *LoadError {
	e := NewLoadError(KindMissingSkeletonOrJSON, detail)
	e.Recovery = &RecoveryAction{Kind: RecoveryFetchMissingSkeleton, FolderPath: folder}
	return e
}
