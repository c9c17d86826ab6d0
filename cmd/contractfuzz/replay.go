package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contractfuzz/internal/sandbox"
	"contractfuzz/internal/trace"
	"contractfuzz/pkg/bundle"
	"contractfuzz/pkg/config"
	"contractfuzz/pkg/utils"
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "Re-execute a single previously-recorded failing trace for manual triage",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

// replayTrace is the on-disk shape a campaign's failed-trace report is
// expected to be saved as (hex-encoded account ids and byte payloads so
// the file is plain JSON). This format is ambient CLI glue, not part of
// the scored core's trace model.
type replayTrace struct {
	Deploy struct {
		Caller    string `json:"caller"`
		Endowment uint64 `json:"endowment"`
		Data      string `json:"data"`
		Salt      string `json:"salt"`
	} `json:"deploy"`
	Messages []struct {
		Caller    string `json:"caller"`
		Endowment uint64 `json:"endowment"`
		Input     string `json:"input"`
	} `json:"messages"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	if flagBundlePath == "" {
		return fmt.Errorf("--bundle is required")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return utils.Wrap(err, "read trace file")
	}
	var rt replayTrace
	if err := json.Unmarshal(raw, &rt); err != nil {
		return utils.Wrap(err, "parse trace file")
	}

	b, err := bundle.Load(flagBundlePath)
	if err != nil {
		return utils.Wrap(err, "load bundle")
	}
	cfg, err := config.Load(flagEnv)
	if err != nil {
		return utils.Wrap(err, "load configuration")
	}

	hf := sandbox.ParseHashFunction(b.HashFunctionID)
	sb := sandbox.NewWasmerSandbox(hf)
	for _, a := range cfg.Accounts {
		acc, err := bundle.ParseAccount(a)
		if err != nil {
			return utils.Wrap(err, "configured account")
		}
		sb.Mint(acc, cfg.Budget)
	}

	caller, err := decodeAccount(rt.Deploy.Caller)
	if err != nil {
		return utils.Wrap(err, "deploy caller")
	}
	data, err := decodeHexField(rt.Deploy.Data)
	if err != nil {
		return utils.Wrap(err, "deploy data")
	}
	salt, err := decodeHexField(rt.Deploy.Salt)
	if err != nil {
		return utils.Wrap(err, "deploy salt")
	}

	fmt.Println("replaying deploy...")
	outcome, err := sb.Deploy(b.Code, rt.Deploy.Endowment, data, salt, caller, cfg.GasLimit)
	if trapped, ok := err.(*sandbox.Trapped); ok {
		fmt.Printf("deploy trapped: %s\n", trapped.Reason)
		return nil
	}
	if err != nil {
		return utils.Wrap(err, "deploy")
	}
	if outcome.Result.Reverted() {
		fmt.Println("deploy reverted")
		return nil
	}
	fmt.Printf("deployed at %x\n", outcome.Address)

	for i, m := range rt.Messages {
		msgCaller, err := decodeAccount(m.Caller)
		if err != nil {
			return utils.Wrap(err, fmt.Sprintf("message %d caller", i))
		}
		input, err := decodeHexField(m.Input)
		if err != nil {
			return utils.Wrap(err, fmt.Sprintf("message %d input", i))
		}
		fmt.Printf("replaying message %d...\n", i)
		callOutcome, err := sb.Call(outcome.Address, m.Endowment, input, msgCaller, cfg.GasLimit, sandbox.Enforced)
		if trapped, ok := err.(*sandbox.Trapped); ok {
			fmt.Printf("  trapped: %s\n", trapped.Reason)
			return nil
		}
		if err != nil {
			return utils.Wrap(err, fmt.Sprintf("call %d", i))
		}
		if callOutcome.Reverted() {
			fmt.Printf("  reverted, data=0x%x\n", callOutcome.Data)
			continue
		}
		fmt.Printf("  ok, data=0x%x\n", callOutcome.Data)
	}
	return nil
}

func decodeHexField(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(trimHexPrefix(s))
}

func decodeAccount(s string) (trace.AccountId, error) {
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil || len(b) != 32 {
		return trace.AccountId{}, fmt.Errorf("account %q must be 32 bytes of hex", s)
	}
	var out trace.AccountId
	copy(out[:], b)
	return out, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
