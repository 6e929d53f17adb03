package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// keygen generates the RSA keypair for license signing. The private key
// stays with the issuing service; the public key gets embedded in the
// desktop build.
func main() {
	outDir := flag.String("out", ".", "Directory to write private.pem and public.pem into")
	bits := flag.Int("bits", 2048, "RSA key size in bits")
	flag.Parse()

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("Failed to generate RSA key: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o700); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	privPath := filepath.Join(*outDir, "private.pem")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		log.Fatalf("Failed to write private key: %v", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		log.Fatalf("Failed to marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})
	pubPath := filepath.Join(*outDir, "public.pem")
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		log.Fatalf("Failed to write public key: %v", err)
	}

	fmt.Printf("Wrote %s (keep this secret, deploy to the issuing service only)\n", privPath)
	fmt.Printf("Wrote %s (embed in the desktop build)\n", pubPath)
}
