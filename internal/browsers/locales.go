package browsers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// resolveMessage handles __MSG_ placeholders in manifest strings. Message keys are
// case-insensitive. Lookup order: default_locale, en, en_US, then any other locale.
func resolveMessage(msg, basePath, defaultLocale string, log *zap.Logger) string {
	if !strings.HasPrefix(msg, "__MSG_") || !strings.HasSuffix(msg, "__") {
		return msg
	}
	msgKey := strings.TrimSuffix(strings.TrimPrefix(msg, "__MSG_"), "__")
	lookupKey := strings.ToLower(msgKey)
	localesPath := filepath.Join(basePath, "_locales")

	localeDirs, err := os.ReadDir(localesPath)
	if err != nil {
		log.Debug("no _locales directory", zap.String("path", localesPath), zap.String("key", msgKey))
		return msgKey
	}

	order := make([]string, 0, len(localeDirs)+3)
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	add(defaultLocale)
	add("en")
	add("en_US")
	for _, dir := range localeDirs {
		if dir.IsDir() {
			add(dir.Name())
		}
	}

	for _, locale := range order {
		messagesPath := filepath.Join(localesPath, locale, "messages.json")
		data, err := os.ReadFile(messagesPath)
		if err != nil {
			continue
		}

		var messages map[string]struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &messages); err != nil {
			log.Debug("failed to parse messages", zap.String("path", messagesPath), zap.Error(err))
			continue
		}

		for key, val := range messages {
			if strings.ToLower(key) == lookupKey {
				return val.Message
			}
		}
	}

	log.Debug("no matching message found", zap.String("key", msgKey), zap.String("path", localesPath))
	return msgKey
}
