package toolset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/app/configuration"
	"github.com/iotaledger/hive.go/ierrors"
)

const (
	FlagToolConfigFile = "config"

	FlagToolAddress = "address"
	FlagToolLabel   = "label"
	FlagToolTarget  = "target"

	FlagToolFile    = "file"
	FlagToolPath    = "path"
	FlagToolCID     = "cid"
	FlagToolTimeout = "timeout"

	FlagToolPrivateKey = "privateKey"

	FlagToolBindAddress = "bindAddress"

	FlagToolOutputJSON            = "json"
	FlagToolDescriptionOutputJSON = "format output as JSON"
)

const (
	ToolRegister   = "register"
	ToolUnregister = "unregister"
	ToolAdd        = "add"
	ToolGet        = "get"
	ToolSend       = "send"
	ToolFind       = "find"
	ToolLocal      = "local"
	ToolUnpublish  = "unpublish"
	ToolNodeInfo   = "node-info"
	ToolKeyDerive  = "key-derive"
	ToolServe      = "serve"
)

// ShouldHandleTools checks if tools were requested.
func ShouldHandleTools() bool {
	args := os.Args[1:]

	for _, arg := range args {
		if strings.ToLower(arg) == "tool" || strings.ToLower(arg) == "tools" {
			return true
		}
	}

	return false
}

// HandleTools handles available tools.
func HandleTools() {
	args := os.Args[1:]
	if len(args) == 1 {
		listTools()
		os.Exit(1)
	}

	tools := map[string]func([]string) error{
		ToolRegister:   register,
		ToolUnregister: unregister,
		ToolAdd:        add,
		ToolGet:        get,
		ToolSend:       send,
		ToolFind:       find,
		ToolLocal:      local,
		ToolUnpublish:  unpublish,
		ToolNodeInfo:   nodeInfo,
		ToolKeyDerive:  keyDerive,
		ToolServe:      serve,
	}

	tool, exists := tools[strings.ToLower(args[1])]
	if !exists {
		fmt.Print("tool not found.\n\n")
		listTools()
		os.Exit(1)
	}

	if err := tool(args[2:]); err != nil {
		if ierrors.Is(err, flag.ErrHelp) {
			// help text was requested
			os.Exit(0)
		}

		fmt.Printf("\nerror: %s\n", err)
		os.Exit(1)
	}

	os.Exit(0)
}

func listTools() {
	fmt.Printf("%-14s records the encryption key of an address on the ledger\n", fmt.Sprintf("%s:", ToolRegister))
	fmt.Printf("%-14s spends the encryption key records of an address\n", fmt.Sprintf("%s:", ToolUnregister))
	fmt.Printf("%-14s encrypts and publishes a file\n", fmt.Sprintf("%s:", ToolAdd))
	fmt.Printf("%-14s fetches and decrypts published content\n", fmt.Sprintf("%s:", ToolGet))
	fmt.Printf("%-14s re-encrypts content for another address\n", fmt.Sprintf("%s:", ToolSend))
	fmt.Printf("%-14s lists the content recorded for an address\n", fmt.Sprintf("%s:", ToolFind))
	fmt.Printf("%-14s lists the plain files of an address\n", fmt.Sprintf("%s:", ToolLocal))
	fmt.Printf("%-14s spends the content records of an address\n", fmt.Sprintf("%s:", ToolUnpublish))
	fmt.Printf("%-14s queries the ledger node and the object store\n", fmt.Sprintf("%s:", ToolNodeInfo))
	fmt.Printf("%-14s derives the encryption key pair of a private key\n", fmt.Sprintf("%s:", ToolKeyDerive))
	fmt.Printf("%-14s serves the health and metrics endpoints\n", fmt.Sprintf("%s:", ToolServe))
}

func yesOrNo(value bool) string {
	if value {
		return "YES"
	}

	return "NO"
}

func parseFlagSet(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Check if all parameters were parsed
	if fs.NArg() != 0 {
		return ierrors.New("too much arguments")
	}

	return nil
}

func printJSON(obj interface{}) error {
	output, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(output))

	return nil
}

// loadConfig applies the config file at filePath, if any, and the flags set on flagset to the bound parameters.
func loadConfig(config *configuration.Configuration, flagset *flag.FlagSet, filePath string) error {
	if filePath != "" {
		if err := config.LoadFile(filePath); err != nil {
			return fmt.Errorf("loading config file failed: %w", err)
		}
	}

	if err := config.LoadFlagSet(flagset); err != nil {
		return fmt.Errorf("loading flags failed: %w", err)
	}

	config.UpdateBoundParameters()

	return nil
}
