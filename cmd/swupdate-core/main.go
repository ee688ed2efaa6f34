/*******************************************************************************
*
* Copyright 2026 The swupdate-core Authors
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

// swupdate-core applies one update archive to the running device. It is
// deliberately not a flag-rich CLI: it takes a config file, an archive
// path and the currently installed version, and does one run, so it can
// be invoked by a supervisor
// or another front-end that owns the actual user-facing surface.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/swupdate-go/core/bootloader"
	"github.com/swupdate-go/core/config"
	coreCrypto "github.com/swupdate-go/core/crypto"
	"github.com/swupdate-go/core/handler"
	"github.com/swupdate-go/core/handler/partition"
	"github.com/swupdate-go/core/handler/rawfile"
	"github.com/swupdate-go/core/handler/script"
	"github.com/swupdate-go/core/manifest"
	"github.com/swupdate-go/core/notifier"
	"github.com/swupdate-go/core/transaction"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <config.toml> <archive> <current-version>\n", os.Args[0])
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2], os.Args[3]); err != nil {
		logrus.WithError(err).Error("update failed")
		os.Exit(1)
	}
}

func run(configPath, archivePath, currentVersion string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}
	entry := logrus.NewEntry(log)

	aesKey, err := cfg.AESKey()
	if err != nil {
		return err
	}

	// A single crypto registry serves both decryption (needed whenever
	// an AES key is configured, independent of signing) and signature
	// verification (needed only when require-signed-image is set). Build
	// it up front and hand it to every collaborator that might need it,
	// rather than constructing it deep inside the require-signed-image
	// branch where a decrypt-only configuration would never see it.
	var cryptoRegistry *coreCrypto.Registry
	if len(aesKey) > 0 || cfg.Crypto.RequireSignedImage {
		cryptoRegistry = coreCrypto.NewRegistry()
		coreCrypto.RegisterDefaults(cryptoRegistry)
	}

	keyProvider := func(a *manifest.Artifact) (key, iv []byte, err error) {
		iv, err = hex.DecodeString(a.IVHex)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding per-artifact IV: %w", err)
		}
		return aesKey, iv, nil
	}

	rawfileHandler := rawfile.New()
	partitionHandler := partition.New()
	if len(aesKey) > 0 {
		rawfileHandler.Crypto = cryptoRegistry
		rawfileHandler.KeyProvider = keyProvider
		partitionHandler.Crypto = cryptoRegistry
		partitionHandler.KeyProvider = keyProvider
	}

	registry := handler.NewRegistry()
	registry.Register("rawfile", rawfileHandler)
	registry.Register("partition", partitionHandler)
	registry.Register("script", &script.Handler{})

	backends := selectBootloaderBackends(cfg.Bootloader.Preferred)
	bl, err := bootloader.Select(backends)
	if err != nil {
		entry.WithError(err).Warn("no bootloader backend available, bootenv commits will be skipped")
	}

	bus := notifier.NewBus()
	if cfg.Sockets.Progress != "" {
		recv, err := notifier.ListenReceiver(cfg.Sockets.Progress, bus, entry)
		if err != nil {
			return fmt.Errorf("starting progress receiver: %w", err)
		}
		defer recv.Close()
		go recv.Run()
	}
	bus.Subscribe(func(r notifier.Record) {
		entry.WithField("phase", r.Phase).Info(r.Message)
	})

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer archiveFile.Close()

	coord := transaction.NewCoordinator(cfg.DeviceIdentity(), registry, bl, bus, entry)

	statusKey := cfg.Crypto.StatusKey
	if statusKey == "" {
		statusKey = transaction.DefaultStatusKey
	}
	coord.StatusKey = statusKey
	coord.RequireSignedImage = cfg.Crypto.RequireSignedImage
	coord.SignatureVerifierName = cfg.Crypto.SignatureVerifier

	if coord.RequireSignedImage {
		pubKey, err := cfg.PublicKey()
		if err != nil {
			return err
		}
		if len(pubKey) == 0 {
			return fmt.Errorf("config: require-signed-image is set but no public-key-path is configured")
		}
		coord.PublicKey = pubKey
		coord.Crypto = cryptoRegistry
	}

	return coord.Run(context.Background(), archiveFile, currentVersion)
}

func selectBootloaderBackends(preferred []string) []bootloader.Bootloader {
	all := map[string]bootloader.Bootloader{
		"efi-bootguard": bootloader.NewEBGBootloader(),
		"uboot":         bootloader.NewUBootBootloader(),
		"grub":          bootloader.NewGRUBBootloader(),
		"cboot":         bootloader.NewCBootBootloader(),
		"file":          bootloader.NewFileBootloader("/var/lib/swupdate-core/bootenv"),
	}
	if len(preferred) == 0 {
		return []bootloader.Bootloader{
			all["efi-bootguard"], all["uboot"], all["grub"], all["cboot"], all["file"],
		}
	}
	backends := make([]bootloader.Bootloader, 0, len(preferred))
	for _, name := range preferred {
		if b, ok := all[name]; ok {
			backends = append(backends, b)
		}
	}
	return backends
}
