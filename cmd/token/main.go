package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dingbot/internal/platform/auth"
	"dingbot/internal/platform/config"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	subject := flag.String("subject", "", "Client the token is issued to")
	robots := flag.String("robots", "", "Comma-separated robots the token may use (empty for all)")
	ttl := flag.Duration("ttl", 0, "Token lifetime (defaults to jwt.access_token_ttl)")
	apiKey := flag.Bool("api-key", false, "Generate a static API key and its config hash instead of a JWT")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "--subject is required")
		os.Exit(2)
	}

	if *apiKey {
		key, hash, err := auth.GenerateAPIKey(*subject)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to generate api key")
		}
		fmt.Printf("key:  %s\n", key)
		fmt.Printf("config:\n  api_keys:\n    %s:\n      hash: %q\n", strings.ToLower(*subject), hash)
		if *robots != "" {
			fmt.Printf("      robots: [%s]\n", *robots)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *ttl > 0 {
		cfg.JWT.AccessTokenTTL = *ttl
	}

	var scope []string
	for _, name := range strings.Split(*robots, ",") {
		if name = strings.TrimSpace(name); name != "" {
			if _, ok := cfg.Robots[name]; !ok {
				log.Fatal().Str("robot", name).Msg("robot is not configured")
			}
			scope = append(scope, name)
		}
	}

	token, err := auth.NewTokenService(cfg.JWT).GenerateToken(*subject, scope...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate token")
	}
	fmt.Println(token)
}
