// Copyright 2026 The Memberhub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command hashpw prints an Argon2id hash for a password read from stdin,
// using the server's configured parameters. Useful for seeding principals.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/memberhub/memberhub/internal/identity"
)

func main() {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ARGON2_MEMORY", 65536)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 4)
	v.SetDefault("ARGON2_SALT_LENGTH", 16)
	v.SetDefault("ARGON2_KEY_LENGTH", 32)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr, "usage: echo <password> | hashpw")
		os.Exit(1)
	}
	password := strings.TrimRight(line, "\r\n")

	hasher := identity.NewPasswordHasher(
		v.GetUint32("ARGON2_MEMORY"),
		v.GetUint32("ARGON2_ITERATIONS"),
		uint8(v.GetUint("ARGON2_PARALLELISM")),
		v.GetUint32("ARGON2_SALT_LENGTH"),
		v.GetUint32("ARGON2_KEY_LENGTH"),
	)
	hash, err := hasher.Hash(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
