package domain

// Season lifecycle event channels published on the EventBus, and event names
// used for notifier filtering.
const (
	ChannelManifestBuilt = "season.manifest_built"
	ChannelRootSubmitted = "season.root_submitted"
	ChannelVerified      = "season.verified"

	EventManifestBuilt    = "manifest_built"
	EventSubmissionResult = "submission_result"
	EventVerifyResult     = "verify_result"
	EventBuildFailed      = "build_failed"
)
