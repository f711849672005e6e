package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Aggregators fan out over several accessors concurrently and combine
// the results into one snapshot. A non-tolerated failure in any member
// fails the whole group immediately; callers wanting resilience pass
// defaultOnError so individual fetches degrade to empty values before
// the join instead.

// AggregateState fetches device status, recent push notifications and
// eco info concurrently and combines them into one state snapshot.
func (c *Client) AggregateState(ctx context.Context, defaultOnError bool) (AggState, error) {
	state := AggState{
		// Probing getZHMode on every poll is disabled; some devices
		// misbehave on it. The placeholder -1 stands in until that is
		// understood well enough to re-enable.
		ZHMode: -1,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		device, err := c.GetDeviceStatus(gctx, defaultOnError)
		if err != nil {
			return err
		}
		state.Device = device
		state.DeviceFetchedAt = time.Now().UTC()
		return nil
	})
	g.Go(func() error {
		notifications, err := c.GetLastPushNotifications(gctx, defaultOnError)
		if err != nil {
			return err
		}
		state.Notifications = notifications
		return nil
	})
	g.Go(func() error {
		eco, err := c.GetEcoInfo(gctx, defaultOnError)
		if err != nil {
			return err
		}
		state.Eco = eco
		return nil
	})
	if err := g.Wait(); err != nil {
		return AggState{}, err
	}
	return state, nil
}

// AggregateUpdateStatus fetches update status and both firmware
// versions concurrently. The update status endpoint is only queried
// when the caller asserts the device supports it; older devices answer
// 404 on it.
func (c *Client) AggregateUpdateStatus(ctx context.Context, supportsUpdateStatus, defaultOnError bool) (AggUpdateStatus, error) {
	var status AggUpdateStatus

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !supportsUpdateStatus {
			return nil
		}
		update, err := c.GetUpdateStatus(gctx, defaultOnError)
		if err != nil {
			return err
		}
		status.Update = update
		return nil
	})
	g.Go(func() error {
		fw, err := c.GetAIFirmwareVersion(gctx, defaultOnError)
		if err != nil {
			return err
		}
		status.AIFirmware = fw
		return nil
	})
	g.Go(func() error {
		fw, err := c.GetHHFirmwareVersion(gctx, defaultOnError)
		if err != nil {
			return err
		}
		status.HHFirmware = fw
		return nil
	})
	if err := g.Wait(); err != nil {
		return AggUpdateStatus{}, err
	}
	return status, nil
}

// AggregateMeta resolves the device identity. It is typically called
// once during initial device identification.
//
// The legacy module's data (MAC address, device status, model
// description, firmware) is fetched concurrently; then the richer
// getDeviceInfo endpoint is tried. A 404 there means the device lacks
// it, and identity is synthesized from the legacy data instead, with
// the API version parsed from the legacy firmware record. Other HTTP
// errors on that endpoint propagate.
func (c *Client) AggregateMeta(ctx context.Context, defaultOnError bool) (AggMeta, error) {
	var (
		macAddress       string
		deviceStatus     DeviceStatus
		modelDescription string
		aiFirmware       FirmwareVersion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		macAddress, err = c.GetMACAddress(gctx, defaultOnError)
		return err
	})
	g.Go(func() error {
		var err error
		deviceStatus, err = c.GetDeviceStatus(gctx, defaultOnError)
		return err
	})
	g.Go(func() error {
		var err error
		modelDescription, err = c.GetModelDescription(gctx, defaultOnError)
		return err
	})
	g.Go(func() error {
		var err error
		aiFirmware, err = c.GetAIFirmwareVersion(gctx, defaultOnError)
		return err
	})
	if err := g.Wait(); err != nil {
		return AggMeta{}, err
	}

	info, err := c.GetDeviceInfo(ctx, true)
	switch {
	case err == nil && info != (DeviceInfo{}):
		return AggMeta{
			MACAddress:   macAddress,
			ModelID:      info.Model,
			ModelName:    info.Description,
			DeviceName:   info.Name,
			SerialNumber: info.SerialNumber,
			APIVersion:   ParseAPIVersion(info.APIVersion),
		}, nil
	case err != nil && !IsNotFound(err):
		return AggMeta{}, err
	default:
		// No getDeviceInfo on this device; fall back to legacy data.
		return AggMeta{
			MACAddress:   macAddress,
			ModelName:    modelDescription,
			DeviceName:   deviceStatus.DeviceName,
			SerialNumber: deviceStatus.Serial,
			APIVersion:   ParseAPIVersion(aiFirmware["apiVersion"]),
		}, nil
	}
}

// AggregateConfig discovers the full configuration tree: for each
// category key it fetches the category descriptor and command key list
// concurrently, then every command descriptor concurrently. This is
// the most request-heavy aggregator; the shared connection pool keeps
// the device-side load bounded regardless of fan-out width.
func (c *Client) AggregateConfig(ctx context.Context) (AggConfig, error) {
	categoryKeys, err := c.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	tree := make(AggConfig, len(categoryKeys))
	for _, categoryKey := range categoryKeys {
		var (
			category    Category
			commandKeys []string
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			category, err = c.GetCategory(gctx, categoryKey)
			return err
		})
		g.Go(func() error {
			var err error
			commandKeys, err = c.ListCommands(gctx, categoryKey)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		agg := AggCategory{
			Key:         categoryKey,
			Description: category.Description,
			Commands:    make(map[string]Command, len(commandKeys)),
		}
		var mu sync.Mutex
		g, gctx = errgroup.WithContext(ctx)
		for _, commandKey := range commandKeys {
			commandKey := commandKey
			g.Go(func() error {
				command, err := c.GetCommand(gctx, commandKey)
				if err != nil {
					return err
				}
				mu.Lock()
				agg.Commands[commandKey] = command
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		tree[categoryKey] = agg
	}
	return tree, nil
}
