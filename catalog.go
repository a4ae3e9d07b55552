package main

import (
	"fmt"

	"github.com/Seednode/knowr/games/knowr"
	"github.com/spf13/viper"
)

// loadCatalog reads the "prompts" list from a yaml, json or toml file.
// With no path the built-in prompts are used.
//
//	prompts:
//	  - label: Coffee or Tea
//	    option_a: Coffee
//	    option_b: Tea
//	    media_a: pairs/coffee.jpeg
func loadCatalog(path string) (knowr.Catalog, error) {
	if path == "" {
		return knowr.DefaultCatalog(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return knowr.Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var prompts []knowr.Prompt
	if err := v.UnmarshalKey("prompts", &prompts); err != nil {
		return knowr.Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	catalog, err := knowr.NewCatalog(prompts)
	if err != nil {
		return knowr.Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}

	return catalog, nil
}
