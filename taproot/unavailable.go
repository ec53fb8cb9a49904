package taproot

import "context"

type unavailableIntegration struct{}

// NewUnavailableIntegration is used when no taproot assets service is configured.
func NewUnavailableIntegration() Integration {
	return &unavailableIntegration{}
}

func (i *unavailableIntegration) IsAvailable(ctx context.Context) (bool, *Error) {
	return false, notAvailableError(nil)
}

func (i *unavailableIntegration) CreateRFQInvoice(ctx context.Context, req *RFQInvoiceRequest) (*RFQInvoice, *Error) {
	return nil, notAvailableError(nil)
}

func notAvailableError(installed []string) *Error {
	err := &Error{
		Code:    ErrCodeNotAvailable,
		Message: "Taproot Assets extension is not installed or not active",
	}
	if installed != nil {
		err.Details = map[string]interface{}{"installed_extensions": installed}
	}
	return err
}
