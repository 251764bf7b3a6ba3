package errors

import "errors"

var (
	ErrContributorNotFound      = errors.New("contributor not found")
	ErrContributorExists        = errors.New("contributor already exists")
	ErrAssetNotFound            = errors.New("asset not found")
	ErrAssetExists              = errors.New("asset name and version already exist")
	ErrAssetArchived            = errors.New("asset is archived")
	ErrInvalidContributionInput = errors.New("invalid contribution input")
	ErrInvalidEventType         = errors.New("unsupported contribution event type")
	ErrTriggerRequiresSystem    = errors.New("triggered_by is only valid for SYSTEM contributors")
	ErrCompositionTargetMissing = errors.New("composition event requires a composed asset id")
)
