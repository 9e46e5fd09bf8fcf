package main

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tomz197/sieve/internal/bridge"
	"github.com/tomz197/sieve/internal/config"
	"github.com/tomz197/sieve/internal/logging"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = "8080"
)

//go:embed index.html
var htmlPage string

func main() {
	logger, err := logging.New(config.GetEnv(config.EnvLogLevel, ""), os.Stderr, "web")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	host := config.GetEnv("WEB_HOST", defaultHost)
	port := config.GetEnv("WEB_PORT", defaultPort)
	sshHost := config.GetEnv("SSH_DISPLAY_HOST", "your-server.com")
	controllerURL := bridge.PublicURL(
		config.GetEnv(config.EnvBridgeAddr, ":8081"),
		config.GetEnv(config.EnvBridgeURL, ""),
	)

	page := strings.NewReplacer(
		"{{.SSHHost}}", sshHost,
		"{{.ControllerURL}}", controllerURL,
	).Replace(htmlPage)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	})

	addr := fmt.Sprintf("%s:%s", host, port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("starting web server", "url", "http://"+addr, "controller", controllerURL)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
