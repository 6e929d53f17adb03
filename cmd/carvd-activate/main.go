package main

import (
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/carvdstudio/carvd-licensing/internal/activation"
	"github.com/carvdstudio/carvd-licensing/internal/licensekey"
	"github.com/carvdstudio/carvd-licensing/pkg/logger"
)

// The verifying key ships inside the binary; activation and every later
// startup check work fully offline.
//
//go:embed public.pem
var publicKeyPEM []byte

func main() {
	statePath := flag.String("state", "", "Override the license state file path")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	appLogger, err := logger.NewZapLogger(*logLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	verifier, err := licensekey.NewVerifierFromPEM(publicKeyPEM)
	if err != nil {
		log.Fatalf("Embedded public key is unusable: %v", err)
	}

	path := *statePath
	if path == "" {
		path, err = activation.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to resolve license state path: %v", err)
		}
	}

	store := activation.NewStore(path, appLogger)
	gate := activation.NewGate(verifier, store, appLogger)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "activate":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: carvd-activate activate <license-key>")
			os.Exit(2)
		}
		runActivate(gate, args[1])
	case "status":
		runStatus(gate)
	case "deactivate":
		runDeactivate(gate)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: carvd-activate [flags] <activate <license-key>|status|deactivate>")
	flag.PrintDefaults()
}

func runActivate(gate *activation.Gate, rawKey string) {
	result, err := gate.Activate(rawKey)
	if err != nil {
		log.Fatalf("Failed to store activation: %v", err)
	}

	if !result.Valid {
		fmt.Printf("License key rejected: %s\n", result.Reason)
		fmt.Println("Check the key you pasted, or purchase a license at https://carvd.studio")
		os.Exit(1)
	}

	fmt.Printf("License activated for %s (order %s)\n", result.Claims.Email, result.Claims.OrderID)
	if result.Claims.IsPerpetual() {
		fmt.Println("License type: perpetual")
	} else {
		fmt.Printf("License valid until %s\n", result.Claims.ExpiresAt.Time)
	}
}

func runStatus(gate *activation.Gate) {
	ent, err := gate.Evaluate()
	if err != nil {
		log.Fatalf("Failed to evaluate entitlement: %v", err)
	}

	switch ent.Mode {
	case activation.ModeLicensed:
		fmt.Printf("Licensed to %s\n", ent.LicenseEmail)
	case activation.ModeTrial:
		fmt.Printf("Trial: %d day(s) remaining\n", ent.TrialDaysRemaining)
		if ent.LicenseReason != "" {
			fmt.Printf("Note: stored license key is not valid (%s)\n", ent.LicenseReason)
		}
	case activation.ModeReduced:
		fmt.Println("Trial expired. Running in reduced mode:")
		fmt.Printf("  - designs limited to %d parts\n", ent.MaxParts)
		fmt.Println("  - export disabled")
		if ent.LicenseReason != "" {
			fmt.Printf("Note: stored license key is not valid (%s)\n", ent.LicenseReason)
		}
		fmt.Println("Purchase a license at https://carvd.studio or enter a key with 'carvd-activate activate <key>'")
	}
}

func runDeactivate(gate *activation.Gate) {
	if err := gate.Deactivate(); err != nil {
		log.Fatalf("Failed to deactivate: %v", err)
	}
	fmt.Println("License deactivated on this machine.")
}
