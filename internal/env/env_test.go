package env_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sethvargo/go-envconfig"

	"github.com/luma/humlsp/internal/env"
)

var _ = Describe("Config", func() {
	It("falls back to defaults", func() {
		cfg, err := env.LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
		Expect(err).To(Succeed())

		Expect(cfg.LogPath).To(Equal("/tmp/huml.log"))
		Expect(cfg.LogLevel).To(Equal("info"))
		Expect(cfg.NotificationQueueSize).To(Equal(127))
		Expect(cfg.MaxContentLength).To(Equal(64 << 20))
		Expect(cfg.Strict).To(BeFalse())
		Expect(cfg.DebugHTTP).To(BeEmpty())
	})

	It("reads overrides", func() {
		cfg, err := env.LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{
			"HUML_LOG_LEVEL":               "debug",
			"HUML_NOTIFICATION_QUEUE_SIZE": "16",
			"HUML_STRICT":                  "true",
			"HUML_DEBUG_HTTP":              "127.0.0.1:7362",
		}))
		Expect(err).To(Succeed())

		Expect(cfg.LogLevel).To(Equal("debug"))
		Expect(cfg.NotificationQueueSize).To(Equal(16))
		Expect(cfg.Strict).To(BeTrue())
		Expect(cfg.DebugHTTP).To(Equal("127.0.0.1:7362"))
	})

	It("rejects values of the wrong type", func() {
		_, err := env.LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{
			"HUML_NOTIFICATION_QUEUE_SIZE": "many",
		}))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("MakeLogger", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "humlsp-env")
		Expect(err).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("writes JSON logs to the configured file", func() {
		path := filepath.Join(dir, "huml.log")

		log, err := env.MakeLogger(&env.Config{LogPath: path, LogLevel: "info"})
		Expect(err).To(Succeed())

		log.Debug("hidden")
		log.Info("Server initialized")
		log.Sync()

		data, err := os.ReadFile(path)
		Expect(err).To(Succeed())
		Expect(string(data)).To(ContainSubstring(`"msg":"Server initialized"`))
		Expect(string(data)).NotTo(ContainSubstring("hidden"))
	})

	It("rejects unknown levels", func() {
		_, err := env.MakeLogger(&env.Config{LogPath: filepath.Join(dir, "huml.log"), LogLevel: "loud"})
		Expect(err).To(MatchError(ContainSubstring("Invalid log level")))
	})
})
