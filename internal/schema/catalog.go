package schema

import (
	"fmt"

	"github.com/xtxerr/warden/internal/errors"
	"github.com/xtxerr/warden/internal/store"
)

// Table names. Components address tables through these constants only.
const (
	TableUsers           = "users"
	TableGateways        = "gateways"
	TableMulticastGroups = "multicast_groups"
	TableDevices         = "devices"
	TableLinks           = "links"
	TableIgnoredLinks    = "ignored_links"
	TablePending         = "pending"
	TableTxFrames        = "txframes"
	TableRxFrames        = "rxframes"
	TableConnectors      = "connectors"
	TableHandlers        = "handlers"
)

// Well-known field names shared with the frames package.
const (
	FieldFrameID   = "frid"
	FieldMAC       = "mac"
	FieldDevAddr   = "devaddr"
	FieldLastReset = "last_reset"
	FieldDateTime  = "datetime"
)

// Catalog returns the declared table definitions, in reconciliation
// order. The slice is rebuilt on every call; callers may mutate their
// copy freely (tests do).
func Catalog() []TableDefinition {
	return []TableDefinition{
		{
			Name:       TableUsers,
			FieldOrder: []string{"name", "pass_hash", "email", "roles"},
			Tier:       store.TierDisk,
			RecordTag:  "user",
		},
		{
			Name:       TableGateways,
			FieldOrder: []string{"mac", "netid", "group", "ant_gain", "desc", "gpspos", "last_alive"},
			Tier:       store.TierDisk,
			RecordTag:  "gateway",
		},
		{
			Name:       TableMulticastGroups,
			FieldOrder: []string{"devaddr", "nwkskey", "appskey", "fcntdown"},
			Tier:       store.TierDisk,
			RecordTag:  "multicast_group",
		},
		{
			Name:       TableDevices,
			FieldOrder: []string{"deveui", "app", "appid", "appkey", "region", "link", "last_join"},
			Tier:       store.TierDisk,
			RecordTag:  "device",
		},
		{
			Name: TableLinks,
			FieldOrder: []string{"devaddr", "deveui", "region", "app", "appid",
				"nwkskey", "appskey", "fcntup", "fcntdown", "last_reset", "last_rx"},
			Tier:      store.TierDisk,
			RecordTag: "link",
		},
		{
			Name:       TableIgnoredLinks,
			FieldOrder: []string{"devaddr", "mask"},
			Tier:       store.TierDisk,
			RecordTag:  "ignored_link",
		},
		{
			Name:       TablePending,
			FieldOrder: []string{"devaddr", "confirmed", "payload", "receipt"},
			Tier:       store.TierDisk,
			RecordTag:  "pending",
		},
		{
			Name:       TableTxFrames,
			FieldOrder: []string{"frid", "datetime", "devaddr", "port", "data"},
			Tier:       store.TierDisk,
			RecordTag:  "txframe",
			Ordered:    true,
		},
		{
			Name: TableRxFrames,
			FieldOrder: []string{"frid", "mac", "devaddr", "freq", "datarate",
				"rssi", "lsnr", "fport", "data", "datetime"},
			IndexFields: []string{"mac", "devaddr"},
			Tier:        store.TierDiskOnly,
			RecordTag:   "rxframe",
			Ordered:     true,
		},
		{
			Name: TableConnectors,
			FieldOrder: []string{"connid", "app", "format", "uri",
				"publish_uplinks", "publish_events", "subscribe", "enabled"},
			Tier:      store.TierDisk,
			RecordTag: "connector",
		},
		{
			Name: TableHandlers,
			FieldOrder: []string{"app", "uplink_fields", "payload",
				"parse_uplink", "build_downlink", "downlink_expires"},
			Tier:      store.TierDisk,
			RecordTag: "handler",
		},
	}
}

// Definition returns the declared definition for a table name.
func Definition(name string) (TableDefinition, error) {
	for _, def := range Catalog() {
		if def.Name == name {
			return def, nil
		}
	}
	return TableDefinition{}, fmt.Errorf("table %q: %w", name, errors.ErrTableNotFound)
}

// ValidateCatalog validates every definition and rejects duplicates.
func ValidateCatalog(defs []TableDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
		if _, dup := seen[def.Name]; dup {
			return fmt.Errorf("table %q declared twice: %w", def.Name, errors.ErrInvalidDefinition)
		}
		seen[def.Name] = struct{}{}
	}
	return nil
}
