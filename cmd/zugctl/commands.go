package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/openzug/openzug/internal/api"
	"github.com/openzug/openzug/internal/config"
	"github.com/openzug/openzug/internal/poller"
)

// Common command flags
var (
	deviceName   string
	hostURL      string
	username     string
	outputFormat string
	timeoutSecs  int
	checkFirst   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceName, "device", "", "Registered appliance name (see 'zugctl devices')")
	rootCmd.PersistentFlags().StringVar(&hostURL, "host", "", "Appliance base URL (e.g. http://192.168.1.50), bypasses the registry")
	rootCmd.PersistentFlags().StringVar(&username, "user", "", "Digest auth username (password via OPENZUG_PASSWORD or prompt)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 10, "Per-request timeout in seconds")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(configTreeCmd)
	rootCmd.AddCommand(ecoCmd)
	rootCmd.AddCommand(programsCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(doCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(devicesCmd)
}

// statusCmd shows the aggregate device state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show device state",
	Long: `Show the current device state: activity, running program,
recent push notifications and eco consumption data.`,
	Example: `  # Registered appliance
  zugctl status --device kitchen

  # Direct URL, authenticated model
  zugctl status --host http://192.168.1.50 --user admin

  # JSON output for scripting
  zugctl status --device kitchen --format json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	state, err := client.AggregateState(cmd.Context(), false)
	if err != nil {
		return describeFailure("failed to read device state", err)
	}

	if outputFormat == "json" {
		return printJSON(state)
	}

	fmt.Printf("Device:   %s\n", state.Device.DeviceName)
	fmt.Printf("Serial:   %s\n", state.Device.Serial)
	fmt.Printf("Active:   %v\n", state.Device.Inactive != "true")
	if state.Device.Program != "" {
		fmt.Printf("Program:  %s\n", state.Device.Program)
	}
	if state.Device.Status != "" {
		fmt.Printf("Status:   %s\n", state.Device.Status)
	}
	if state.Device.ProgramEnd.End != "" {
		fmt.Printf("Ends:     %s (%s)\n", state.Device.ProgramEnd.End, state.Device.ProgramEnd.EndType)
	}
	if state.ZHMode >= 0 {
		fmt.Printf("ZH mode:  %d\n", state.ZHMode)
	}
	if !state.Eco.IsEmpty() {
		fmt.Printf("Water:    %.1f total, %.1f avg\n", state.Eco.Water.Total, state.Eco.Water.Average)
		fmt.Printf("Energy:   %.2f total, %.2f avg\n", state.Eco.Energy.Total, state.Eco.Energy.Average)
	}
	if len(state.Notifications) > 0 {
		fmt.Println("\nRecent notifications:")
		for _, n := range state.Notifications {
			fmt.Printf("  [%s] %s\n", n.Date, n.Message)
		}
	}
	return nil
}

// infoCmd shows the resolved device identity
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device identity",
	Long: `Show the device identity: model, serial number, MAC address and
API version. Works with both current and legacy appliances.`,
	Example: `  zugctl info --device kitchen`,
	RunE:    runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	meta, err := client.AggregateMeta(cmd.Context(), false)
	if err != nil {
		return describeFailure("failed to identify device", err)
	}

	if outputFormat == "json" {
		return printJSON(meta)
	}

	fmt.Printf("Name:        %s\n", meta.Name())
	fmt.Printf("Model:       %s", meta.ModelName)
	if meta.ModelID != "" && meta.ModelID != meta.ModelName {
		fmt.Printf(" (%s)", meta.ModelID)
	}
	fmt.Println()
	fmt.Printf("Serial:      %s\n", meta.SerialNumber)
	fmt.Printf("MAC:         %s\n", meta.MACAddress)
	if v := meta.APIVersion.String(); v != "" {
		fmt.Printf("API version: %s\n", v)
	}
	fmt.Printf("Update API:  %v\n", meta.SupportsUpdateStatus())
	return nil
}

// updatesCmd shows firmware update status
var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Show firmware update status",
	Long: `Show the firmware versions of both appliance components and
whether updates are available.

Appliances with an API version below 1.7.0 do not implement the update
status endpoint; for those only firmware versions are shown.`,
	Example: `  # Show cached update status
  zugctl updates --device kitchen

  # Ask the appliance to check for new firmware first
  zugctl updates --device kitchen --check`,
	RunE: runUpdates,
}

func init() {
	updatesCmd.Flags().BoolVar(&checkFirst, "check", false, "Trigger an update check before reading the status")
	updatesCmd.AddCommand(updateInstallCmd)
}

func runUpdates(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	meta, err := client.AggregateMeta(ctx, false)
	if err != nil {
		return describeFailure("failed to identify device", err)
	}

	if checkFirst {
		if err := client.CheckForUpdates(ctx); err != nil {
			return describeFailure("update check failed", err)
		}
	}

	updates, err := client.AggregateUpdateStatus(ctx, meta.SupportsUpdateStatus(), false)
	if err != nil {
		return describeFailure("failed to read update status", err)
	}

	if outputFormat == "json" {
		return printJSON(updates)
	}

	printFirmware := func(label string, fw api.FirmwareVersion) {
		if len(fw) == 0 {
			return
		}
		fmt.Printf("%s firmware:\n", label)
		keys := make([]string, 0, len(fw))
		for k := range fw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-16s %s\n", k, fw[k])
		}
	}
	printFirmware("Interface", updates.AIFirmware)
	printFirmware("Appliance", updates.HHFirmware)

	if !meta.SupportsUpdateStatus() {
		fmt.Println("\nUpdate status not supported by this appliance.")
		return nil
	}

	status := updates.Update.Status
	if status == "" {
		status = api.UpdateStatusIdle
	}
	fmt.Printf("\nUpdate status:      %s\n", status)
	fmt.Printf("Interface update:   %v\n", updates.Update.AIUpdateAvailable)
	fmt.Printf("Appliance update:   %v\n", updates.Update.HHGUpdateAvailable)
	for _, comp := range updates.Update.Components {
		fmt.Printf("  %s: running=%v download=%d%% install=%d%%\n",
			comp.Name, comp.Running, comp.Progress.Download, comp.Progress.Installation)
	}
	return nil
}

// updateInstallCmd starts a firmware update
var updateInstallCmd = &cobra.Command{
	Use:   "install <ai|hh>",
	Short: "Start a firmware update",
	Long: `Start installing an available firmware update on one component:
'ai' for the network interface, 'hh' for the appliance itself.

The appliance rejects the request if no update is available. Progress
can be followed with 'zugctl updates' or 'zugctl watch'.`,
	Example: `  zugctl updates install ai --device kitchen`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUpdateInstall,
}

func runUpdateInstall(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	switch args[0] {
	case api.ComponentAI:
		err = client.DoAIUpdate(cmd.Context())
	case api.ComponentHH:
		err = client.DoHHGUpdate(cmd.Context())
	default:
		return fmt.Errorf("unknown component %q (use ai or hh)", args[0])
	}
	if err != nil {
		return describeFailure("failed to start update", err)
	}

	fmt.Printf("Update started on %q. Follow progress with 'zugctl updates'.\n", args[0])
	return nil
}

// configTreeCmd dumps the configuration tree
var configTreeCmd = &cobra.Command{
	Use:   "config-tree",
	Short: "Show the appliance configuration tree",
	Long: `Walk the appliance's configuration tree and show every category
with its commands, current values and allowed options.

This issues one request per category and command, so it can take a few
seconds on appliances with large trees.`,
	Example: `  zugctl config-tree --device kitchen
  zugctl config-tree --device kitchen --format json`,
	RunE: runConfigTree,
}

func runConfigTree(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	tree, err := client.AggregateConfig(cmd.Context())
	if err != nil {
		return describeFailure("failed to read configuration tree", err)
	}

	if outputFormat == "json" {
		return printJSON(tree)
	}

	categories := make([]string, 0, len(tree))
	for key := range tree {
		categories = append(categories, key)
	}
	sort.Strings(categories)

	for _, key := range categories {
		category := tree[key]
		fmt.Printf("%s", key)
		if category.Description != "" {
			fmt.Printf(" - %s", category.Description)
		}
		fmt.Println()

		commands := make([]string, 0, len(category.Commands))
		for ck := range category.Commands {
			commands = append(commands, ck)
		}
		sort.Strings(commands)
		for _, ck := range commands {
			command := category.Commands[ck]
			fmt.Printf("  %-24s %s", ck, command.Value)
			if !command.Alterable {
				fmt.Printf(" (read-only)")
			}
			if len(command.Options) > 0 {
				fmt.Printf(" [%s]", strings.Join(command.Options, ", "))
			}
			if len(command.MinMax) == 2 {
				fmt.Printf(" [%s..%s]", command.MinMax[0], command.MinMax[1])
			}
			fmt.Println()
		}
	}
	return nil
}

// ecoCmd shows consumption data
var ecoCmd = &cobra.Command{
	Use:   "eco",
	Short: "Show water and energy consumption",
	Long: `Show the appliance's water and energy consumption totals and
averages. Appliances without consumption metering report nothing.`,
	Example: `  zugctl eco --device kitchen`,
	RunE:    runEco,
}

func runEco(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	eco, err := client.GetEcoInfo(cmd.Context(), false)
	if err != nil {
		return describeFailure("failed to read consumption data", err)
	}

	if outputFormat == "json" {
		return printJSON(eco)
	}

	if eco.IsEmpty() {
		fmt.Println("No consumption data reported.")
		return nil
	}
	fmt.Printf("Water:   total %.1f   average %.1f   last program %.1f\n",
		eco.Water.Total, eco.Water.Average, eco.Water.Program)
	fmt.Printf("Energy:  total %.2f   average %.2f   last program %.2f\n",
		eco.Energy.Total, eco.Energy.Average, eco.Energy.Program)
	return nil
}

// programsCmd lists the appliance's programs
var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List appliance programs",
	Long: `List the programs the appliance offers, with their options and
current settings. The active program is marked.`,
	Example: `  zugctl programs --device kitchen`,
	RunE:    runPrograms,
}

func init() {
	programsCmd.AddCommand(programStartCmd)
}

func runPrograms(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	programs, err := client.GetPrograms(cmd.Context())
	if err != nil {
		return describeFailure("failed to read programs", err)
	}

	if outputFormat == "json" {
		return printJSON(programs)
	}

	if len(programs) == 0 {
		fmt.Println("No programs reported.")
		return nil
	}
	for _, program := range programs {
		marker := " "
		if program.Info.Status == "selected" {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s\n", marker, program.Info.ID, program.Info.Name)

		options := make([]string, 0, len(program.Options))
		for key := range program.Options {
			options = append(options, key)
		}
		sort.Strings(options)
		for _, key := range options {
			option := program.Options[key]
			fmt.Printf("       %-20s", key)
			if option.Set != nil {
				fmt.Printf(" = %v", option.Set)
			}
			if option.Min != nil && option.Max != nil {
				fmt.Printf(" [%d..%d]", *option.Min, *option.Max)
			}
			if len(option.Options) > 0 {
				fmt.Printf(" %v", option.Options)
			}
			fmt.Println()
		}
	}
	return nil
}

// programStartCmd starts or modifies a program
var programStartCmd = &cobra.Command{
	Use:   "start <program-id> [option=value ...]",
	Short: "Start a program with options",
	Long: `Start (or modify) a program by ID, optionally setting program
options. Option names and allowed values are shown by 'zugctl programs'.

Numeric and boolean values are sent as such; everything else is sent
as a string.`,
	Example: `  # Start program 105 with defaults
  zugctl programs start 105 --device kitchen

  # Start with options
  zugctl programs start 105 duration=30 steamPercentage=50 --device kitchen`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProgramStart,
}

func runProgramStart(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	programID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid program id %q: %w", args[0], err)
	}

	options := make(map[string]any, len(args)-1)
	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("invalid option %q (expected option=value)", arg)
		}
		options[key] = parseOptionValue(value)
	}

	reply, err := client.SetProgram(cmd.Context(), programID, options)
	if err != nil {
		return describeFailure("failed to start program", err)
	}

	if reply != "" {
		fmt.Println(reply)
	} else {
		fmt.Printf("Program %d started.\n", programID)
	}
	return nil
}

// parseOptionValue picks the JSON type for a command line option value.
func parseOptionValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// setCmd writes a configuration value
var setCmd = &cobra.Command{
	Use:   "set <command> <value>",
	Short: "Set a configuration value",
	Long: `Set one configuration tree command to a new value. Command keys
and allowed values are shown by 'zugctl config-tree'.`,
	Example: `  zugctl set ecomXLight 2 --device kitchen`,
	Args:    cobra.ExactArgs(2),
	RunE:    runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	if err := client.SetCommand(cmd.Context(), args[0], args[1]); err != nil {
		return describeFailure("failed to set value", err)
	}

	// Read back so the user sees what the appliance accepted.
	command, err := client.GetCommand(cmd.Context(), args[0])
	if err != nil {
		fmt.Printf("Value sent, but read-back failed: %v\n", err)
		return nil
	}
	fmt.Printf("%s = %s\n", args[0], command.Value)
	return nil
}

// doCmd triggers an action command
var doCmd = &cobra.Command{
	Use:   "do <command>",
	Short: "Trigger an action command",
	Long: `Trigger an action-type configuration command, for example a
self-clean cycle or a filter reset. Action commands are listed by
'zugctl config-tree' with type "action".`,
	Example: `  zugctl do startCleaning --device kitchen`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDo,
}

func runDo(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	if err := client.DoCommandAction(cmd.Context(), args[0]); err != nil {
		return describeFailure("failed to trigger action", err)
	}
	fmt.Printf("Action %q triggered.\n", args[0])
	return nil
}

// watchCmd polls the appliance continuously
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously poll the appliance",
	Long: `Poll the appliance and print its state on every change of the
state snapshot. Device state is read every 30 seconds and update
status adaptively (every few seconds while an update runs).

Stop with Ctrl-C.`,
	Example: `  zugctl watch --device kitchen`,
	RunE:    runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := resolveClient()
	if err != nil {
		return err
	}

	p := poller.New(client)
	if registry, err := config.LoadRegistry(); err == nil && registry.Preferences != nil {
		if registry.Preferences.StateInterval > 0 {
			p.StateInterval = time.Duration(registry.Preferences.StateInterval) * time.Second
		}
		if registry.Preferences.ConfigInterval > 0 {
			p.ConfigInterval = time.Duration(registry.Preferences.ConfigInterval) * time.Second
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Wait for the initial refresh round, then print on every change.
	var last string
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				return describeFailure("polling stopped", err)
			}
			return nil
		case <-ticker.C:
			state := p.State()
			if state.DeviceFetchedAt.IsZero() {
				continue
			}
			line := formatWatchLine(p.Meta(), state, p.UpdateStatus())
			if line == last {
				continue
			}
			last = line
			fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), line)
		}
	}
}

func formatWatchLine(meta api.AggMeta, state api.AggState, updates api.AggUpdateStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", meta.Name())
	if state.Device.Inactive == "true" {
		b.WriteString(" inactive")
	} else if state.Device.Program != "" {
		fmt.Fprintf(&b, " %s", state.Device.Program)
		if state.Device.Status != "" {
			fmt.Fprintf(&b, " (%s)", state.Device.Status)
		}
		if state.Device.ProgramEnd.End != "" {
			fmt.Fprintf(&b, " ends %s", state.Device.ProgramEnd.End)
		}
	} else {
		b.WriteString(" idle")
	}
	if !updates.Update.Idle() {
		fmt.Fprintf(&b, " [update: %s]", updates.Update.Status)
	}
	return b.String()
}

// devicesCmd manages the appliance registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage registered appliances",
	Long: `Manage the local appliance registry. Registered appliances can be
addressed by name with --device instead of repeating URLs and
usernames.

Passwords are never stored; authenticated commands read them from the
OPENZUG_PASSWORD environment variable or prompt for them.`,
	RunE: runDevicesList,
}

func init() {
	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
	devicesCmd.AddCommand(devicesListCmd)
}

// devicesAddCmd registers an appliance
var devicesAddCmd = &cobra.Command{
	Use:   "add <name> <base-url>",
	Short: "Register an appliance",
	Long: `Register an appliance under a name. The appliance is contacted
once to verify the URL and record its serial number and model.`,
	Example: `  zugctl devices add kitchen http://192.168.1.50
  zugctl devices add cellar http://192.168.1.60 --user admin`,
	Args: cobra.ExactArgs(2),
	RunE: runDevicesAdd,
}

func runDevicesAdd(cmd *cobra.Command, args []string) error {
	name, baseURL := args[0], args[1]

	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	credentials, err := credentialsFor(username)
	if err != nil {
		return err
	}
	client := api.NewClient(baseURL, credentials)
	client.SetTimeout(time.Duration(timeoutSecs) * time.Second)

	fmt.Printf("Contacting %s...\n", baseURL)
	meta, err := client.AggregateMeta(cmd.Context(), false)
	if err != nil {
		return describeFailure("appliance did not respond", err)
	}

	registry.SetAppliance(name, &config.Appliance{
		BaseURL:  baseURL,
		Username: username,
	})
	registry.TouchAppliance(name, meta.SerialNumber, meta.ModelName)
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}

	fmt.Printf("Registered %q: %s\n", name, meta.UniqueName())
	return nil
}

// devicesRemoveCmd unregisters an appliance
var devicesRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Short:   "Unregister an appliance",
	Example: `  zugctl devices remove kitchen`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDevicesRemove,
}

func runDevicesRemove(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	if !registry.RemoveAppliance(args[0]) {
		return fmt.Errorf("no appliance named %q", args[0])
	}
	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	fmt.Printf("Removed %q.\n", args[0])
	return nil
}

// devicesListCmd lists registered appliances
var devicesListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List registered appliances",
	Example: `  zugctl devices list`,
	RunE:    runDevicesList,
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(registry.Appliances)
	}

	if len(registry.Appliances) == 0 {
		fmt.Println("No appliances registered. Use 'zugctl devices add <name> <base-url>'.")
		return nil
	}

	names := make([]string, 0, len(registry.Appliances))
	for name := range registry.Appliances {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		appliance := registry.Appliances[name]
		fmt.Printf("%s\n", name)
		fmt.Printf("  URL:    %s\n", appliance.BaseURL)
		if appliance.Username != "" {
			fmt.Printf("  User:   %s\n", appliance.Username)
		}
		if appliance.Model != "" {
			fmt.Printf("  Model:  %s\n", appliance.Model)
		}
		if appliance.Serial != "" {
			fmt.Printf("  Serial: %s\n", appliance.Serial)
		}
		if !appliance.LastSeen.IsZero() {
			fmt.Printf("  Seen:   %s\n", appliance.LastSeen.Format(time.RFC3339))
		}
	}
	return nil
}

// resolveClient builds an API client from --host or the registry.
func resolveClient() (*api.Client, error) {
	baseURL := hostURL
	user := username

	if baseURL == "" {
		registry, err := config.LoadRegistry()
		if err != nil {
			return nil, err
		}

		name := deviceName
		if name == "" {
			if len(registry.Appliances) == 1 {
				for only := range registry.Appliances {
					name = only
				}
			} else if len(registry.Appliances) == 0 {
				return nil, fmt.Errorf("no appliance selected: use --host, or register one with 'zugctl devices add'")
			} else {
				return nil, fmt.Errorf("multiple appliances registered: select one with --device")
			}
		}

		appliance := registry.GetAppliance(name)
		if appliance == nil {
			return nil, fmt.Errorf("no appliance named %q", name)
		}
		baseURL = appliance.BaseURL
		if user == "" {
			user = appliance.Username
		}
	}

	credentials, err := credentialsFor(user)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(baseURL, credentials)
	client.SetTimeout(time.Duration(timeoutSecs) * time.Second)
	return client, nil
}

// credentialsFor resolves the password for user from the environment
// or an interactive prompt. Returns nil for unauthenticated models.
func credentialsFor(user string) (*api.Credentials, error) {
	if user == "" {
		return nil, nil
	}
	if password := os.Getenv("OPENZUG_PASSWORD"); password != "" {
		return &api.Credentials{Username: user, Password: password}, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("no password for %q: set OPENZUG_PASSWORD or run interactively", user)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", user)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return &api.Credentials{Username: user, Password: string(password)}, nil
}

// describeFailure turns API errors into actionable messages.
func describeFailure(what string, err error) error {
	switch {
	case api.IsAuthError(err):
		return fmt.Errorf("%s: authentication rejected (check --user and OPENZUG_PASSWORD): %w", what, err)
	case api.IsNotFound(err):
		return fmt.Errorf("%s: not supported by this appliance: %w", what, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
