package codec

// Envelope keys
const (
	KeyEventType   = "EE_EVENT_TYPE"
	KeySender      = "EE_ID"
	KeyTimestamp   = "EE_TIMESTAMP"
	KeyPath        = "EE_PAYLOAD_PATH"
	KeyInitiator   = "INITIATOR_ID"
	KeySession     = "SESSION_ID"
	KeyEncodedData = "ENCODED_DATA"
)

// Notification keys
const (
	KeyNotificationType = "NOTIFICATION_TYPE"
	KeyNotificationCode = "NOTIFICATION_CODE"
	KeyNotification     = "NOTIFICATION"
	KeyInfo             = "INFO"
	KeyModule           = "MODULE"
)

// Heartbeat keys
const (
	KeyDCTStats      = "DCT_STATS"
	KeyActivePlugins = "ACTIVE_PLUGINS"

	KeyType             = "TYPE"
	KeyConfig           = "CONFIG"
	KeyLastUpdateTime   = "LAST_UPDATE_TIME"
	KeyRateActual       = "RATE_ACTUAL"
	KeyRateConfigured   = "RATE_CONFIGURED"
	KeyRateTarget       = "RATE_TARGET"
	KeyStatusFlow       = "STATUS_FLOW"
	KeyStatusCollecting = "STATUS_COLLECTING"
	KeyStatusIdle       = "STATUS_IDLE"
	KeyStatusIdleAlert  = "STATUS_IDLE_ALERT"
	KeyStatusFails      = "STATUS_FAILS"
	KeyStatusLog        = "STATUS_LOG"

	KeyStreamID            = "STREAM_ID"
	KeySignature           = "SIGNATURE"
	KeyInstanceID          = "INSTANCE_ID"
	KeyFrequency           = "FREQUENCY"
	KeyInitTime            = "INIT_TIMESTAMP"
	KeyExecTime            = "EXEC_TIMESTAMP"
	KeyConfigTime          = "LAST_CONFIG_TIMESTAMP"
	KeyLastPayloadTime     = "LAST_PAYLOAD_TIME"
	KeyFirstErrorTime      = "FIRST_ERROR_TIME"
	KeyLastErrorTime       = "LAST_ERROR_TIME"
	KeyOutsideWorkingHours = "OUTSIDE_WORKING_HOURS"
	KeyInstanceConfig      = "INSTANCE_CONFIG"
	KeyTags                = "ID_TAGS"
)

// Command keys
const (
	KeyAction          = "ACTION"
	KeyPayload         = "PAYLOAD"
	KeyTime            = "TIME"
	KeyName            = "NAME"
	KeyPlugins         = "PLUGINS"
	KeyInstances       = "INSTANCES"
	KeyPipelineCommand = "PIPELINE_COMMAND"
)
