/**
 * @description
 * This file implements the tool dispatcher: the contract between the
 * language-model collaborator and the banking service. The model decides
 * WHICH tool to call; this layer decodes the loosely-typed argument map,
 * resolves the authenticated caller, invokes the service, and returns a
 * structured result. It never returns free text and never lets the model
 * compute balances, amounts or state transitions itself.
 */

package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Dispatcher routes named tool invocations to service operations.
type Dispatcher struct {
	service *Service
}

// NewDispatcher creates a dispatcher over the service.
func NewDispatcher(service *Service) *Dispatcher {
	return &Dispatcher{service: service}
}

// Dispatch invokes the named tool for the authenticated caller. The args map
// comes from the model's function-call output, so every value is decoded
// defensively.
func (d *Dispatcher) Dispatch(ctx context.Context, callerID, tool string, args map[string]any) (any, error) {
	switch tool {
	case "list_accounts":
		accounts, err := d.service.ListAccounts(ctx, callerID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"accounts": accounts}, nil

	case "check_balance":
		return d.service.CheckBalance(ctx, callerID, stringArg(args, "account"))

	case "list_beneficiaries":
		beneficiaries, err := d.service.ListBeneficiaries(ctx, callerID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"beneficiaries": beneficiaries}, nil

	case "find_beneficiaries":
		// Multiple matches are returned as-is so the conversational layer
		// can ask the caller to disambiguate.
		matches, err := d.service.FindBeneficiariesByName(ctx, callerID, stringArg(args, "name"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"beneficiaries": matches}, nil

	case "list_transfer_modes":
		return map[string]any{"modes": d.service.ListTransferModes()}, nil

	case "begin_transfer":
		if err := checkCurrency(stringArg(args, "currency")); err != nil {
			return nil, err
		}
		amount, err := int64Arg(args, "amount")
		if err != nil {
			return nil, ErrInvalidAmount
		}
		destination := stringArg(args, "destination_id")
		if destination == "" {
			destination = stringArg(args, "beneficiary_id")
		}
		return d.service.Flow().Begin(ctx, callerID,
			stringArg(args, "kind"),
			stringArg(args, "source_account_id"),
			destination,
			amount,
			stringArg(args, "mode"))

	case "start_transfer":
		return d.service.Flow().Start(ctx, callerID)

	case "provide_transfer_field":
		return d.provideTransferField(ctx, callerID, args)

	case "confirm_transfer":
		return d.service.Flow().Confirm(ctx, callerID, stringArg(args, "session_id"), boolArg(args, "confirmed"))

	case "confirm_otp":
		return d.service.Flow().SubmitOTP(ctx, callerID, stringArg(args, "session_id"), stringArg(args, "otp"))

	case "cancel_transfer":
		if err := d.service.Flow().Cancel(ctx, callerID, stringArg(args, "session_id")); err != nil {
			return nil, err
		}
		return map[string]any{"cancelled": true}, nil

	case "get_transaction_history":
		page := 1
		if n, err := int64Arg(args, "page"); err == nil && n > 0 {
			page = int(n)
		}
		return d.service.History().GetTransactionHistory(ctx, callerID,
			stringArg(args, "account"),
			stringArg(args, "period"),
			stringArg(args, "start_date"),
			stringArg(args, "end_date"),
			page)

	case "next_page":
		return d.service.History().NextPage(ctx, callerID, stringArg(args, "session_id"))

	case "previous_page":
		return d.service.History().PreviousPage(ctx, callerID, stringArg(args, "session_id"))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
}

// provideTransferField feeds one collected answer into the guided flow. The
// field names mirror the RequiredInput values the flow's prompts emit, so the
// model can echo a prompt's field straight back.
func (d *Dispatcher) provideTransferField(ctx context.Context, callerID string, args map[string]any) (any, error) {
	handle := stringArg(args, "session_id")
	switch field := stringArg(args, "field"); field {
	case "transfer_kind", "kind":
		return d.service.Flow().ProvideKind(ctx, callerID, handle, stringArg(args, "value"))
	case "source_account", "source_account_id":
		return d.service.Flow().ProvideSource(ctx, callerID, handle, stringArg(args, "value"))
	case "destination_account", "beneficiary_id", "destination_id":
		return d.service.Flow().ProvideDestination(ctx, callerID, handle, stringArg(args, "value"))
	case "amount":
		amount, err := int64Arg(args, "value")
		if err != nil {
			return nil, ErrInvalidAmount
		}
		return d.service.Flow().ProvideAmount(ctx, callerID, handle, amount)
	case "transfer_mode", "mode":
		return d.service.Flow().ProvideMode(ctx, callerID, handle, stringArg(args, "value"))
	default:
		return nil, fmt.Errorf("unknown transfer field %q", field)
	}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// int64Arg accepts the numeric shapes JSON decoding and model output
// produce: float64, integer types, or a numeric string.
func int64Arg(args map[string]any, key string) (int64, error) {
	if args == nil {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch v := args[key].(type) {
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q is not a number", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("missing argument %q", key)
	}
}

// boolArg reads a confirmation value: a JSON bool, or one of the affirmative
// phrasings the model passes through. Anything else counts as a decline.
func boolArg(args map[string]any, key string) bool {
	if args == nil {
		return false
	}
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "confirm", "confirmed", "ok":
			return true
		}
	}
	return false
}

// checkCurrency rejects anything that is not rupees. An empty value is
// accepted because rupees are the only currency the service handles.
func checkCurrency(currency string) error {
	switch strings.ToLower(currency) {
	case "", "inr", "rs", "rupee", "rupees", "₹":
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrUnsupportedCurrency, currency)
	}
}
