package static

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"adinsight/config"
	"adinsight/utils"
)

// Handler sert les fichiers statiques avec whitelist et fallback (static puis static_default).
// La configuration est relue à chaque requête pour suivre les rechargements.
func Handler(current func() config.ServerConfig, accessLogger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := current()
		staticDir := cfg.Static
		if staticDir == "" {
			staticDir = "./static"
		}
		staticDefault := cfg.StaticDefault
		if staticDefault == "" {
			staticDefault = "./static"
		}

		reqPath := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		// Whitelist (wildcard support)
		if !isAllowedWildcard(reqPath, cfg.StaticAllowed) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			accessLogger.Info("static refused", zap.String("path", reqPath))
			return
		}

		for _, dir := range []string{staticDir, staticDefault} {
			filePath := filepath.Join(utils.Resolve(dir), filepath.FromSlash(reqPath))
			if !fileExists(filePath) {
				continue
			}
			content, err := os.ReadFile(filePath)
			if err != nil {
				continue
			}
			final := applyTemplateMacros(string(content), cfg.TemplateVars)
			if ct := mime.TypeByExtension(filepath.Ext(filePath)); ct != "" {
				w.Header().Set("Content-Type", ct)
			}
			_, _ = w.Write([]byte(final))
			accessLogger.Debug("static ok", zap.String("path", reqPath), zap.String("dir", dir))
			return
		}

		http.NotFound(w, r)
		accessLogger.Info("static not found", zap.String("path", reqPath))
	})
}

func applyTemplateMacros(content string, vars map[string]string) string {
	for key, val := range vars {
		placeholder := "{" + key + "}"
		content = strings.ReplaceAll(content, placeholder, val)
	}
	return content
}

// Vérifie si un nom de fichier est dans la whitelist (wildcard)
func isAllowedWildcard(fileName string, allowed []string) bool {
	for _, pattern := range allowed {
		if matched, _ := filepath.Match(pattern, fileName); matched {
			return true
		}
		// "*/x.js" accepte x.js dans n'importe quel sous-dossier
		if strings.HasPrefix(pattern, "*/") {
			suffix := pattern[2:]
			if strings.HasSuffix(fileName, suffix) {
				return true
			}
		}
	}
	return false
}

// Vérifie si un fichier existe (et n'est pas un répertoire)
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}
