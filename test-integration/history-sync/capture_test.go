package integration

import (
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/thv-history-sync/test-integration/history-sync/helpers"
)

var _ = Describe("Live Capture", Label("capture"), func() {
	var (
		tempDir      string
		remote       *helpers.MockRemote
		serverHelper *helpers.ServerTestHelper
	)

	start := func(capture bool) {
		configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			RemoteURL:    remote.URL(),
			Threads:      []string{"alpha"},
			DatabasePath: filepath.Join(tempDir, "history.db"),
			Capture:      capture,
		})
		serverHelper = helpers.NewServerTestHelper(ctx, configFile)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	}

	BeforeEach(func() {
		tempDir = createTempDir("history-capture-test-")
		remote = helpers.NewMockRemote()
		remote.AddMessages("alpha", 2)
	})

	AfterEach(func() {
		_ = serverHelper.StopServer()
		remote.Close()
		cleanupTempDir(tempDir)
	})

	It("should store captured messages alongside synced history", func() {
		start(true)
		serverHelper.SyncAndWait(15 * time.Second)

		status := serverHelper.PostMessage("alpha", map[string]any{
			"messageID": "live-1",
			"timestamp": time.Now().UnixMilli(),
			"text":      "hello",
		})
		Expect(status).To(Equal(http.StatusAccepted))

		Eventually(func() int64 {
			return serverHelper.GetThreads()["alpha"]
		}, 5*time.Second, 100*time.Millisecond).Should(BeNumerically("==", 3))
	})

	It("should keep syncing after a duplicate capture lands before the first run", func() {
		start(true)

		live := map[string]any{
			"messageID": "live-1",
			"timestamp": time.Now().UnixMilli(),
			"text":      "hello",
		}
		Expect(serverHelper.PostMessage("alpha", live)).To(Equal(http.StatusAccepted))
		Expect(serverHelper.PostMessage("alpha", live)).To(Equal(http.StatusAccepted))

		Eventually(func() int64 {
			return serverHelper.GetThreads()["alpha"]
		}, 5*time.Second, 100*time.Millisecond).Should(BeNumerically("==", 1))
		Consistently(func() int64 {
			return serverHelper.GetThreads()["alpha"]
		}, 300*time.Millisecond, 50*time.Millisecond).Should(BeNumerically("==", 1), "the duplicate is rejected")

		for range 2 {
			report := serverHelper.SyncAndWait(15 * time.Second)
			Expect(report.Summary.Failed).To(BeZero())
			Expect(report.Outcomes["alpha"].Error).To(BeEmpty())
		}
		Expect(serverHelper.GetThreads()["alpha"]).To(BeNumerically("==", 2))
	})

	It("should reject messages without a key", func() {
		start(true)

		status := serverHelper.PostMessage("alpha", map[string]any{"timestamp": time.Now().UnixMilli()})
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should not expose capture when it is disabled", func() {
		start(false)

		status := serverHelper.PostMessage("alpha", map[string]any{
			"messageID": "live-1",
			"timestamp": time.Now().UnixMilli(),
		})
		Expect(status).To(Equal(http.StatusNotFound))
	})
})
