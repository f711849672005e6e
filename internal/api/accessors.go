package api

import (
	"context"
	"encoding/json"
	"fmt"
)

// Each accessor binds one (component, command) pair to its own
// validation and retry policy. Read accessors take a defaultOnError
// flag that, when set, degrades a fully failed call to an empty value
// instead of an error (authentication failures still surface).
// Mutating accessors use raw responses and the short retry budget and
// never take fallbacks.

// GetMACAddress returns the device MAC address.
func (c *Client) GetMACAddress(ctx context.Context, defaultOnError bool) (string, error) {
	spec := commandSpec{Component: ComponentAI, Command: "getMacAddress", Raw: true}
	if defaultOnError {
		spec.ValueOnErr = func() any { return "" }
	}
	return c.rawCommand(ctx, spec)
}

// GetModelDescription returns the human-readable model description.
func (c *Client) GetModelDescription(ctx context.Context, defaultOnError bool) (string, error) {
	spec := commandSpec{Component: ComponentAI, Command: "getModelDescription", Raw: true}
	if defaultOnError {
		spec.ValueOnErr = func() any { return "" }
	}
	return c.rawCommand(ctx, spec)
}

// GetDeviceStatus returns the appliance's current activity.
func (c *Client) GetDeviceStatus(ctx context.Context, defaultOnError bool) (DeviceStatus, error) {
	spec := commandSpec{Component: ComponentAI, Command: "getDeviceStatus", Expect: expectObject}
	if defaultOnError {
		spec.ValueOnErr = emptyObject
	}
	return commandAs[DeviceStatus](ctx, c, spec)
}

// GetUpdateStatus returns firmware update progress. Devices with API
// versions below 1.7.0 do not implement this endpoint and answer 404.
func (c *Client) GetUpdateStatus(ctx context.Context, defaultOnError bool) (UpdateStatus, error) {
	spec := commandSpec{Component: ComponentAI, Command: "getUpdateStatus", Expect: expectObject}
	if defaultOnError {
		spec.ValueOnErr = emptyObject
	}
	return commandAs[UpdateStatus](ctx, c, spec)
}

// CheckForUpdates asks the device to check for new firmware.
func (c *Client) CheckForUpdates(ctx context.Context) error {
	_, err := c.command(ctx, commandSpec{
		Component: ComponentAI,
		Command:   "checkUpdate",
		Raw:       true,
		Attempts:  mutationAttempts,
	})
	return err
}

// DoAIUpdate starts a firmware update of the communication module.
func (c *Client) DoAIUpdate(ctx context.Context) error {
	_, err := c.command(ctx, commandSpec{
		Component: ComponentAI,
		Command:   "doAIUpdate",
		Raw:       true,
		Attempts:  mutationAttempts,
	})
	return err
}

// DoHHGUpdate starts a firmware update of the household module.
func (c *Client) DoHHGUpdate(ctx context.Context) error {
	_, err := c.command(ctx, commandSpec{
		Component: ComponentAI,
		Command:   "doHHGUpdate",
		Raw:       true,
		Attempts:  mutationAttempts,
	})
	return err
}

// GetLastPushNotifications returns the most recent push notifications.
func (c *Client) GetLastPushNotifications(ctx context.Context, defaultOnError bool) ([]PushNotification, error) {
	spec := commandSpec{Component: ComponentAI, Command: "getLastPUSHNotifications", Expect: expectArray}
	if defaultOnError {
		spec.ValueOnErr = emptyArray
	}
	return commandAs[[]PushNotification](ctx, c, spec)
}

// ListCategories returns the configuration category keys.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	return commandAs[[]string](ctx, c, commandSpec{
		Component: ComponentHH,
		Command:   "getCategories",
		Expect:    expectArray,
		// No RejectEmpty here: the API sometimes wrongly returns an
		// empty list, but some appliances (AdoraWash V4000) genuinely
		// have zero categories.
		RejectEmpty: false,
	})
}

// GetCategory returns the descriptor of one category.
func (c *Client) GetCategory(ctx context.Context, key string) (Category, error) {
	return commandAs[Category](ctx, c, commandSpec{
		Component: ComponentHH,
		Command:   "getCategory",
		Params:    map[string]string{"value": key},
		Expect:    expectObject,
	})
}

// ListCommands returns the command keys of one category.
func (c *Client) ListCommands(ctx context.Context, categoryKey string) ([]string, error) {
	return commandAs[[]string](ctx, c, commandSpec{
		Component: ComponentHH,
		Command:   "getCommands",
		Params:    map[string]string{"value": categoryKey},
		Expect:    expectArray,
	})
}

// GetCommand returns the full descriptor of one command.
func (c *Client) GetCommand(ctx context.Context, key string) (Command, error) {
	return commandAs[Command](ctx, c, commandSpec{
		Component: ComponentHH,
		Command:   "getCommand",
		Params:    map[string]string{"value": key},
		Expect:    expectObject,
	})
}

// SetCommand sets the value of a user-alterable command.
func (c *Client) SetCommand(ctx context.Context, command, value string) error {
	_, err := c.command(ctx, commandSpec{
		Component: ComponentHH,
		Command:   "set" + command,
		Params:    map[string]string{"value": value},
		Raw:       true,
		Attempts:  mutationAttempts,
	})
	return err
}

// DoCommandAction triggers an action-type command.
func (c *Client) DoCommandAction(ctx context.Context, command string) error {
	_, err := c.command(ctx, commandSpec{
		Component: ComponentHH,
		Command:   "do" + command,
		Raw:       true,
		Attempts:  mutationAttempts,
	})
	return err
}

// GetHHFirmwareVersion returns the household module's firmware
// version components.
func (c *Client) GetHHFirmwareVersion(ctx context.Context, defaultOnError bool) (FirmwareVersion, error) {
	spec := commandSpec{Component: ComponentHH, Command: "getFWVersion", Expect: expectObject}
	if defaultOnError {
		spec.ValueOnErr = emptyObject
	}
	return commandAs[FirmwareVersion](ctx, c, spec)
}

// GetAIFirmwareVersion returns the legacy module's firmware version
// components.
func (c *Client) GetAIFirmwareVersion(ctx context.Context, defaultOnError bool) (FirmwareVersion, error) {
	spec := commandSpec{Component: ComponentAI, Command: "getFWVersion", Expect: expectObject}
	if defaultOnError {
		spec.ValueOnErr = emptyObject
	}
	return commandAs[FirmwareVersion](ctx, c, spec)
}

// GetZHMode returns the current zh mode value.
func (c *Client) GetZHMode(ctx context.Context, defaultOnError bool) (int, error) {
	spec := commandSpec{Component: ComponentHH, Command: "getZHMode", Expect: expectObject}
	if defaultOnError {
		spec.ValueOnErr = func() any { return map[string]any{"value": -1} }
	}
	result, err := commandAs[struct {
		Value int `json:"value"`
	}](ctx, c, spec)
	if err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetEcoInfo returns water and energy consumption metrics. A result
// where both totals are zero is normalized to the empty EcoInfo: it
// signals "no data", not a device that consumes nothing.
func (c *Client) GetEcoInfo(ctx context.Context, defaultOnError bool) (EcoInfo, error) {
	spec := commandSpec{Component: ComponentHH, Command: "getEcoInfo", Expect: expectObject}
	if defaultOnError {
		spec.ValueOnErr = emptyObject
	}
	eco, err := commandAs[EcoInfo](ctx, c, spec)
	if err != nil {
		return EcoInfo{}, err
	}
	if eco.Water.Total == 0 && eco.Energy.Total == 0 {
		return EcoInfo{}, nil
	}
	return eco, nil
}

// GetDeviceInfo returns the rich identity record of the household
// module. Devices without it answer 404; see IsNotFound.
func (c *Client) GetDeviceInfo(ctx context.Context, defaultOnError bool) (DeviceInfo, error) {
	spec := commandSpec{Component: ComponentHH, Command: "getDeviceInfo", Expect: expectObject}
	if defaultOnError {
		spec.ValueOnErr = emptyObject
	}
	return commandAs[DeviceInfo](ctx, c, spec)
}

// GetPrograms returns the currently relevant programs, each split into
// fixed identity fields and appliance-specific options. Only some
// devices implement this endpoint.
func (c *Client) GetPrograms(ctx context.Context) ([]Program, error) {
	spec := commandSpec{Component: ComponentHH, Command: "getProgram", Expect: expectArray}
	data, err := c.command(ctx, spec)
	if err != nil {
		return nil, err
	}
	rawPrograms, _ := data.([]any)
	programs := make([]Program, 0, len(rawPrograms))
	for _, raw := range rawPrograms {
		mapping, ok := raw.(map[string]any)
		if !ok {
			return nil, &APIError{
				Kind:      KindDecode,
				Component: spec.Component,
				Command:   spec.Command,
				Message:   fmt.Sprintf("program entry is %T, not an object", raw),
			}
		}
		program, err := BuildProgram(mapping)
		if err != nil {
			return nil, &APIError{
				Kind:      KindDecode,
				Component: spec.Component,
				Command:   spec.Command,
				Err:       err,
			}
		}
		programs = append(programs, program)
	}
	return programs, nil
}

// SetProgram selects and configures a program. The options mapping may
// carry option flags, start time or duration; the program id is always
// included. Returns the device's raw confirmation text.
func (c *Client) SetProgram(ctx context.Context, programID int, options map[string]any) (string, error) {
	payload := make(map[string]any, len(options)+1)
	for k, v := range options {
		payload[k] = v
	}
	payload["id"] = programID
	value, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return c.rawCommand(ctx, commandSpec{
		Component: ComponentHH,
		Command:   "setProgram",
		Params:    map[string]string{"value": string(value)},
		Raw:       true,
		Attempts:  mutationAttempts,
	})
}

// GetAllProgramIDs returns every program id usable with SetProgram.
// Only some devices implement this endpoint.
func (c *Client) GetAllProgramIDs(ctx context.Context) ([]int, error) {
	return commandAs[[]int](ctx, c, commandSpec{
		Component: ComponentHH,
		Command:   "getAllProgramIds",
		Expect:    expectArray,
	})
}

func (c *Client) rawCommand(ctx context.Context, spec commandSpec) (string, error) {
	data, err := c.command(ctx, spec)
	if err != nil {
		return "", err
	}
	s, _ := data.(string)
	return s, nil
}

func emptyObject() any { return map[string]any{} }
func emptyArray() any  { return []any{} }
