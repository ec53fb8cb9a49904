package constants

// shared constants used by multiple packages

const (
	TRANSACTION_TYPE_INCOMING = "incoming"

	TRANSACTION_STATE_PENDING = "PENDING"
	TRANSACTION_STATE_SETTLED = "SETTLED"
)

// payment hash values written to a switch payment before and after settlement.
// Neither is a real hash.
const (
	PAYMENT_HASH_NOT_YET_SET = "not yet set"
	PAYMENT_HASH_PAID        = "paid"
)

// invoice extra tag identifying invoices created for a switch
const SWITCH_INVOICE_TAG = "Switch"

const SAT_CURRENCY = "sat"

// maxSendable multiplier for variable-priced pins
const VARIABLE_PRICE_MAX_MULTIPLIER = 360

// internal event names
const (
	EVENT_LNCLIENT_PAYMENT_RECEIVED = "lnclient_payment_received"
	EVENT_INVOICE_PAID              = "invoice_paid"
	EVENT_SWITCH_CREATED            = "switch_created"
	EVENT_SWITCH_UPDATED            = "switch_updated"
	EVENT_SWITCH_DELETED            = "switch_deleted"
	EVENT_SERVICE_STARTED           = "service_started"
	EVENT_SERVICE_STOPPED           = "service_stopped"
)

// nostr kind of a zap receipt (NIP-57)
const ZAP_RECEIPT_KIND = 9735

const MQTT_TOPIC_PREFIX = "bitcoinswitch"

const TAPROOT_EXTENSION_ID = "taproot_assets"

const INVOICE_METADATA_MAX_LENGTH = 2000

// pixels per side of the pin QR code PNG
const QR_CODE_SIZE = 256
