package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The appliance JSON is sparse: almost every field is optional and its
// absence is normal, not an error. The structs below therefore use zero
// values (empty string, nil slice) to mean "not reported".

// DeviceStatusProgramEnd describes the estimated end of the running program.
type DeviceStatusProgramEnd struct {
	EndType string `json:"EndType,omitempty"`
	End     string `json:"End,omitempty"`
}

// DeviceStatus describes the appliance's current activity as reported
// by the legacy module's getDeviceStatus command.
type DeviceStatus struct {
	DeviceName string                 `json:"DeviceName,omitempty"`
	Serial     string                 `json:"Serial,omitempty"`
	Inactive   string                 `json:"Inactive,omitempty"` // "true" or "false"
	Program    string                 `json:"Program,omitempty"`
	Status     string                 `json:"Status,omitempty"`
	ProgramEnd DeviceStatusProgramEnd `json:"ProgramEnd,omitempty"`
	DeviceUUID string                 `json:"deviceUuid,omitempty"`
}

// UpdateProgress holds per-component update percentages.
type UpdateProgress struct {
	Download     int `json:"download,omitempty"`
	Installation int `json:"installation,omitempty"`
}

// UpdateComponent describes the update state of one firmware component.
type UpdateComponent struct {
	Name      string         `json:"name,omitempty"`
	Running   bool           `json:"running,omitempty"`
	Available bool           `json:"available,omitempty"`
	Required  bool           `json:"required,omitempty"`
	Progress  UpdateProgress `json:"progress,omitempty"`
}

// UpdateStatusIdle is the resting value of UpdateStatus.Status.
const UpdateStatusIdle = "idle"

// UpdateStatus describes firmware update progress.
type UpdateStatus struct {
	Status             string            `json:"status,omitempty"`
	AIUpdateAvailable  bool              `json:"isAIUpdateAvailable,omitempty"`
	HHGUpdateAvailable bool              `json:"isHHGUpdateAvailable,omitempty"`
	Synced             bool              `json:"isSynced,omitempty"`
	Components         []UpdateComponent `json:"components,omitempty"`
}

// Idle reports whether no update activity is in progress. An absent
// status counts as idle.
func (u UpdateStatus) Idle() bool {
	return u.Status == "" || u.Status == UpdateStatusIdle
}

// PushNotification is one entry from getLastPUSHNotifications.
type PushNotification struct {
	Date    string `json:"date,omitempty"`
	Message string `json:"message,omitempty"`
}

// Command describes one configurable or queryable appliance setting.
type Command struct {
	Type        string   `json:"type,omitempty"` // action|boolean|selection|status|range
	Description string   `json:"description,omitempty"`
	Command     string   `json:"command,omitempty"`
	Value       string   `json:"value,omitempty"`
	Alterable   bool     `json:"alterable,omitempty"`
	Options     []string `json:"options,omitempty"`
	MinMax      []string `json:"minMax,omitempty"`
	// Refresh lists sibling command keys to re-read after this command
	// is changed.
	Refresh []string `json:"refresh,omitempty"`
}

// FirmwareVersion is the raw version-component mapping returned by
// getFWVersion. The legacy and household modules report different key
// sets, so the data is passed through opaquely; only a few keys (such
// as "HW", "SW" and "apiVersion" on the legacy module) are interpreted.
type FirmwareVersion map[string]string

// EcoMetric holds the consumption figures for one resource.
type EcoMetric struct {
	Total   float64 `json:"total,omitempty"`
	Average float64 `json:"average,omitempty"`
	Program float64 `json:"program,omitempty"`
	Option  float64 `json:"option,omitempty"` // reported by some washers, meaning unknown
}

// EcoInfo holds water and energy consumption metrics. The zero value
// means "no data"; see Client.GetEcoInfo for the all-zero
// normalization that keeps false zero readings out.
type EcoInfo struct {
	Water  EcoMetric `json:"water,omitempty"`
	Energy EcoMetric `json:"energy,omitempty"`
}

// IsEmpty reports whether the appliance provided no consumption data.
func (e EcoInfo) IsEmpty() bool {
	return e == EcoInfo{}
}

// Category is a named grouping of commands in the configuration tree.
type Category struct {
	Description string `json:"description,omitempty"`
}

// DeviceInfo is the identity record served by the household module's
// getDeviceInfo command. Older devices do not implement it.
type DeviceInfo struct {
	Model        string `json:"model,omitempty"`
	Description  string `json:"description,omitempty"` // model description
	Type         string `json:"type,omitempty"`
	Name         string `json:"name,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	// ArticleNumber is the prefix of the serial number.
	ArticleNumber string `json:"articleNumber,omitempty"`
	APIVersion    string `json:"apiVersion,omitempty"` // seen: 1.5.0, 1.7.0, 1.8.0
	ZHMode        int    `json:"zhMode,omitempty"`
}

// ProgramOption describes one variable option of a program: either a
// numeric range (Min/Max/Step) or a current value with allowed
// alternatives (Set/Options). Set may be a bool or a number depending
// on the option.
type ProgramOption struct {
	Min     *int  `json:"min,omitempty"`
	Max     *int  `json:"max,omitempty"`
	Step    *int  `json:"step,omitempty"`
	Set     any   `json:"set,omitempty"`
	Options []any `json:"options,omitempty"`
}

// ProgramInfo holds the fixed identity fields of a program.
type ProgramInfo struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Status  string `json:"status,omitempty"` // "selected" when active
	StepIDs []int  `json:"stepIds,omitempty"`
}

// programInfoKeys enumerates the ProgramInfo fields inside the raw
// program mapping. Everything else is a device-specific option.
var programInfoKeys = []string{"id", "name", "status", "stepIds"}

// Program splits a raw program mapping into fixed identity fields and
// the residual, appliance-specific options.
type Program struct {
	Info    ProgramInfo
	Options map[string]ProgramOption
}

// BuildProgram splits raw into a Program. The fixed ProgramInfo keys
// are moved out of the mapping; every remaining key becomes an option,
// so variable option sets survive without being hardcoded.
func BuildProgram(raw map[string]any) (Program, error) {
	options := make(map[string]any, len(raw))
	for k, v := range raw {
		options[k] = v
	}
	info := make(map[string]any, len(programInfoKeys))
	for _, key := range programInfoKeys {
		if v, ok := options[key]; ok {
			info[key] = v
			delete(options, key)
		}
	}

	program := Program{Options: make(map[string]ProgramOption, len(options))}
	var err error
	if program.Info, err = decodeAs[ProgramInfo](info); err != nil {
		return Program{}, fmt.Errorf("program info: %w", err)
	}
	for key, v := range options {
		opt, err := decodeAs[ProgramOption](v)
		if err != nil {
			return Program{}, fmt.Errorf("program option %q: %w", key, err)
		}
		program.Options[key] = opt
	}
	return program, nil
}

// APIVersion is a device API version as an ordered tuple of
// non-negative integers, compared lexicographically. The empty version
// is a legitimate degraded value for devices that report a missing or
// garbled version string.
type APIVersion []int

// ParseAPIVersion parses a dotted version string such as "1.7.0".
// Missing or unparseable input yields the empty version rather than an
// error so that metadata aggregation never fails on it.
func ParseAPIVersion(s string) APIVersion {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	version := make(APIVersion, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil
		}
		version = append(version, n)
	}
	return version
}

// Compare returns -1, 0 or 1 ordering v lexicographically against other.
func (v APIVersion) Compare(other APIVersion) int {
	for i := 0; i < len(v) && i < len(other); i++ {
		switch {
		case v[i] < other[i]:
			return -1
		case v[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(v) < len(other):
		return -1
	case len(v) > len(other):
		return 1
	}
	return 0
}

// AtLeast reports whether v >= the given version parts.
func (v APIVersion) AtLeast(parts ...int) bool {
	return v.Compare(APIVersion(parts)) >= 0
}

// String renders the version in dotted form.
func (v APIVersion) String() string {
	if len(v) == 0 {
		return ""
	}
	strs := make([]string, len(v))
	for i, n := range v {
		strs[i] = strconv.Itoa(n)
	}
	return strings.Join(strs, ".")
}

// AggState is the aggregate device state snapshot.
type AggState struct {
	ZHMode          int
	Device          DeviceStatus
	DeviceFetchedAt time.Time
	Notifications   []PushNotification
	Eco             EcoInfo
}

// AggUpdateStatus is the aggregate firmware update snapshot.
type AggUpdateStatus struct {
	Update     UpdateStatus
	AIFirmware FirmwareVersion
	HHFirmware FirmwareVersion
}

// AggMeta is the resolved device identity, gathered once during device
// identification.
type AggMeta struct {
	MACAddress   string
	ModelID      string
	ModelName    string
	DeviceName   string
	SerialNumber string
	APIVersion   APIVersion
}

// Name returns a display name for the device: the user-assigned device
// name if set, otherwise model name, model id or serial number.
func (m AggMeta) Name() string {
	if name := strings.TrimSpace(m.DeviceName); name != "" {
		return name
	}
	if m.ModelName != "" {
		return m.ModelName
	}
	if m.ModelID != "" {
		return m.ModelID
	}
	return m.SerialNumber
}

// UniqueName returns Name() disambiguated by the serial number.
func (m AggMeta) UniqueName() string {
	name := m.Name()
	if strings.Contains(name, m.SerialNumber) {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, m.SerialNumber)
}

// SupportsUpdateStatus reports whether the device implements the
// getUpdateStatus endpoint. Older devices (API < 1.7.0) answer 404.
func (m AggMeta) SupportsUpdateStatus() bool {
	return m.APIVersion.AtLeast(1, 7, 0)
}

// AggCategory is one configuration category with its commands.
type AggCategory struct {
	Key         string
	Description string
	Commands    map[string]Command
}

// AggConfig is the full configuration tree, keyed by category key.
type AggConfig map[string]AggCategory

// decodeAs converts a generically decoded JSON value into a typed
// structure by round-tripping it through encoding/json.
func decodeAs[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}
