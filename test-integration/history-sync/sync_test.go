package integration

import (
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/thv-history-sync/test-integration/history-sync/helpers"
)

var _ = Describe("Thread History Sync", Label("sync"), func() {
	var (
		tempDir      string
		remote       *helpers.MockRemote
		configFile   string
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tempDir = createTempDir("history-sync-test-")
		remote = helpers.NewMockRemote()
		remote.AddMessages("alpha", 7)
		remote.AddMessages("beta", 3)
		remote.AddMessages("gamma", 0)

		configFile = helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			RemoteURL:      remote.URL(),
			Threads:        []string{"alpha", "beta", "gamma"},
			DatabasePath:   filepath.Join(tempDir, "history.db"),
			ExecuteOnStart: true,
		})

		serverHelper = helpers.NewServerTestHelper(ctx, configFile)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	})

	AfterEach(func() {
		_ = serverHelper.StopServer()
		remote.Close()
		cleanupTempDir(tempDir)
	})

	Context("Initial synchronization", func() {
		It("should download the full history of every thread", func() {
			report := serverHelper.WaitForReport(15 * time.Second)

			Expect(report.Summary.Threads).To(Equal(3))
			Expect(report.Summary.Failed).To(BeZero())
			Expect(report.Outcomes["alpha"].Status).To(Equal("synchronized"))
			Expect(report.Outcomes["beta"].Status).To(Equal("synchronized"))
			Expect(report.Outcomes["gamma"].Status).To(Equal("up-to-date"))

			Expect(serverHelper.GetThreads()).To(Equal(map[string]int64{
				"alpha": 7,
				"beta":  3,
				"gamma": 0,
			}))
		})
	})

	Context("Incremental synchronization", func() {
		It("should only download messages added since the last run", func() {
			serverHelper.WaitForReport(15 * time.Second)
			queriesBefore := remote.HistoryQueries("beta")

			remote.AddMessages("alpha", 4)
			report := serverHelper.SyncAndWait(15 * time.Second)

			alpha := report.Outcomes["alpha"]
			Expect(alpha.Status).To(Equal("synchronized"))
			Expect(alpha.Reason).To(Equal("behind"))
			Expect(alpha.Local).To(BeNumerically("==", 7))
			Expect(alpha.Count).To(BeNumerically(">=", 4))

			Expect(report.Outcomes["beta"].Status).To(Equal("up-to-date"))
			Expect(remote.HistoryQueries("beta")).To(Equal(queriesBefore), "an up-to-date thread must not be paged")

			Expect(serverHelper.GetThreads()["alpha"]).To(BeNumerically("==", 11))
		})

		It("should download the history again when the remote reports fewer messages", func() {
			serverHelper.WaitForReport(15 * time.Second)

			remote.ReportCount("beta", 2)
			report := serverHelper.SyncAndWait(15 * time.Second)

			beta := report.Outcomes["beta"]
			Expect(beta.Reason).To(Equal("drift"))
			Expect(beta.Status).To(Equal("synchronized"))
			Expect(serverHelper.GetThreads()["beta"]).To(BeNumerically("==", 3), "re-downloaded messages are deduplicated")
		})

		It("should report a failed thread without failing the others", func() {
			serverHelper.WaitForReport(15 * time.Second)

			otherDir := createTempDir("history-sync-fail-")
			defer cleanupTempDir(otherDir)

			failingConfig := helpers.WriteConfigYAML(otherDir, helpers.ConfigOptions{
				RemoteURL:    remote.URL(),
				Threads:      []string{"alpha", "missing"},
				DatabasePath: filepath.Join(otherDir, "history.db"),
			})
			other := helpers.NewServerTestHelper(ctx, failingConfig)
			Expect(other.StartServer()).To(Succeed())
			defer func() {
				_ = other.StopServer()
			}()
			other.WaitForServerReady(10 * time.Second)

			report := other.SyncAndWait(15 * time.Second)
			Expect(report.Summary.Failed).To(Equal(1))
			Expect(report.Outcomes["missing"].Status).To(Equal("failed"))
			Expect(report.Outcomes["missing"].Error).NotTo(BeEmpty())
			Expect(report.Outcomes["alpha"].Status).To(Equal("synchronized"))
		})
	})

	Context("Restart", func() {
		It("should keep the stored history and resume incrementally", func() {
			serverHelper.WaitForReport(15 * time.Second)
			Expect(serverHelper.StopServer()).To(Succeed())

			remote.AddMessages("beta", 2)

			restarted := helpers.NewServerTestHelper(ctx, configFile)
			Expect(restarted.StartServer()).To(Succeed())
			defer func() {
				_ = restarted.StopServer()
			}()
			restarted.WaitForServerReady(10 * time.Second)

			report := restarted.WaitForReport(15 * time.Second)
			Expect(report.Outcomes["alpha"].Status).To(Equal("up-to-date"))
			Expect(report.Outcomes["beta"].Local).To(BeNumerically("==", 3))
			Expect(restarted.GetThreads()["beta"]).To(BeNumerically("==", 5))
		})
	})

	Context("Concurrent triggers", func() {
		It("should accept a trigger or report the run in progress", func() {
			serverHelper.WaitForReport(15 * time.Second)

			Expect(serverHelper.TriggerSync()).To(BeElementOf(http.StatusAccepted, http.StatusConflict))
		})
	})
})
