package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// Callback uniques. The router matches them exactly.
const (
	CallbackApprove      = "approve"
	CallbackReject       = "reject"
	CallbackClientsPage  = "clients"
	CallbackClientCard   = "card"
	CallbackTrainersPage = "trainers"
	CallbackPickTrainer  = "pick"
	CallbackComplete     = "done"
	CallbackCity         = "city"
	CallbackCancel       = "cancel"
	// CallbackNoop has no handler; the router only answers it.
	CallbackNoop = "noop"
)

func EncodeCallback(unique, data string) (string, error) {
	if data == "" {
		if len(unique) > CallbackDataLimitBytes {
			return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(unique))
		}
		return unique, nil
	}

	payload := unique + CallbackDataSeparator + data
	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

func DecodeCallback(callbackData string) (unique, data string, err error) {
	// telebot prefixes data of buttons created with Unique by \f
	callbackData = strings.TrimPrefix(callbackData, "\f")
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	idx := strings.Index(callbackData, CallbackDataSeparator)
	if idx == -1 {
		return callbackData, "", nil
	}

	return callbackData[:idx], callbackData[idx+len(CallbackDataSeparator):], nil
}
