package logger_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	l := logger.NewLogger("test-service", "debug", true)

	BeforeEach(func() {
		l.SetJSON()
	})

	decode := func(b *bytes.Buffer) map[string]interface{} {
		var actual map[string]interface{}
		Expect(json.Unmarshal(b.Bytes(), &actual)).To(Succeed())
		return actual
	}

	It("Should have `test-service` as service name", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)
		l.Info("Testing")
		Expect(decode(logOutput)["service"]).To(Equal("test-service"))
	})

	It("Should carry a run id", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)
		l.Info("Testing")
		Expect(decode(logOutput)["run"]).To(Equal(l.RunID))
		Expect(l.RunID).ToNot(BeEmpty())
	})

	It("Should have warn as log level", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)
		l.Warn("Testing")
		Expect(decode(logOutput)["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)
		l.Error("Testing")
		actual := decode(logOutput)
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)
		l.Info("Testing")
		Expect(decode(logOutput)["msg"]).To(Equal("Testing"))
	})
})

var _ = Describe("Run logger", func() {
	It("Should copy entries to a timestamped file in the log folder", func() {
		dir, err := ioutil.TempDir("", "run-logger-")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)

		now := time.Date(2024, 4, 17, 1, 2, 3, 0, time.UTC)
		l, err := logger.NewRunLogger("pinetl", "info", false, dir, now)
		Expect(err).ToNot(HaveOccurred())
		l.SetOutput(ioutil.Discard)
		l.Info("written to file")
		l.Debug("below level")
		Expect(l.Close()).To(Succeed())

		Expect(l.FilePath).To(HaveSuffix("pinetl_20240417T010203.log"))
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(l.FilePath), "pinetl_"), ".log")
		Expect(stamp).To(MatchRegexp(constants.TimeFormatYearSecondsRegex))
		b, err := ioutil.ReadFile(l.FilePath)
		Expect(err).ToNot(HaveOccurred())
		lines := strings.Split(strings.TrimSpace(string(b)), "\n")
		Expect(lines).To(HaveLen(1))
		Expect(lines[0]).To(ContainSubstring(`"msg":"written to file"`))
	})

	It("Should reject an unknown level", func() {
		_, err := logger.NewRunLogger("pinetl", "loud", false, os.TempDir(), time.Now())
		Expect(err).To(HaveOccurred())
	})
})
