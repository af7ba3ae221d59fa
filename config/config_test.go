package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/config"
	"github.com/sarchlab/bpsim/predictor"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "bpsim-config")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Default", func() {
		It("should use sensible defaults", func() {
			c := config.Default()
			Expect(c.Predictor).To(Equal(predictor.DefaultConfig()))
			Expect(c.MispredictPenalty).To(Equal(uint64(12)))
			Expect(c.FrequencyGHz).To(BeNumerically("~", 3.5, 1e-9))
			Expect(c.TopBranches).To(Equal(10))
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Load", func() {
		It("should load JSON and keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "sim.json")
			data := `{"predictor": {"variant": "gshare", "global_history_bits": 13}, "mispredict_penalty": 20}`
			Expect(os.WriteFile(path, []byte(data), 0644)).To(Succeed())

			c, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Predictor.Variant).To(Equal(predictor.Gshare))
			Expect(c.Predictor.GlobalHistoryBits).To(Equal(uint(13)))
			Expect(c.Predictor.LocalHistoryBits).To(Equal(uint(10)))
			Expect(c.MispredictPenalty).To(Equal(uint64(20)))
			Expect(c.ProfileSets).To(Equal(64))
		})

		It("should load YAML", func() {
			path := filepath.Join(tempDir, "sim.yaml")
			data := "predictor:\n  variant: tournament\n  pc_index_bits: 8\nfrequency_ghz: 2\n"
			Expect(os.WriteFile(path, []byte(data), 0644)).To(Succeed())

			c, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Predictor.Variant).To(Equal(predictor.Tournament))
			Expect(c.Predictor.PCIndexBits).To(Equal(uint(8)))
			Expect(c.Predictor.GlobalHistoryBits).To(Equal(uint(14)))
			Expect(c.FrequencyGHz).To(BeNumerically("~", 2.0, 1e-9))
		})

		It("should reject unknown variants", func() {
			path := filepath.Join(tempDir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"predictor": {"variant": "tage"}}`), 0644)).To(Succeed())
			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})

		It("should report missing files", func() {
			_, err := config.Load(filepath.Join(tempDir, "missing.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
		})
	})

	Describe("Save", func() {
		It("should write a file that loads back the same values", func() {
			for _, name := range []string{"out.json", "out.yml"} {
				c := config.Default()
				c.Predictor.Variant = predictor.Hybrid
				c.TopBranches = 3

				path := filepath.Join(tempDir, name)
				Expect(c.Save(path)).To(Succeed())

				loaded, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(Equal(c), name)
			}
		})
	})

	Describe("Validate", func() {
		It("should reject zero and oversized widths", func() {
			c := config.Default()
			c.Predictor.GlobalHistoryBits = 0
			Expect(c.Validate()).To(MatchError(ContainSubstring("global_history_bits")))

			c = config.Default()
			c.Predictor.PCIndexBits = config.MaxTableBits + 1
			Expect(c.Validate()).To(MatchError(ContainSubstring("pc_index_bits")))
		})

		It("should reject an unknown variant", func() {
			c := config.Default()
			c.Predictor.Variant = predictor.Variant(42)
			Expect(c.Validate()).NotTo(Succeed())
		})

		It("should reject a non-positive frequency", func() {
			c := config.Default()
			c.FrequencyGHz = 0
			Expect(c.Validate()).NotTo(Succeed())
		})

		It("should require profile geometry when reporting hot branches", func() {
			c := config.Default()
			c.ProfileWays = 0
			Expect(c.Validate()).NotTo(Succeed())

			c.TopBranches = 0
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Clone", func() {
		It("should return an independent copy", func() {
			c := config.Default()
			clone := c.Clone()
			clone.MispredictPenalty = 99
			Expect(c.MispredictPenalty).To(Equal(uint64(12)))
		})
	})
})
