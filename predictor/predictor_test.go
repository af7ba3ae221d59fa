package predictor_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/predictor"
)

const (
	T = predictor.Taken
	N = predictor.NotTaken
)

// replay predicts then trains each branch in order and returns the
// predictions.
func replay(core *predictor.Core, pcs []uint32, outcomes []predictor.Outcome) []predictor.Outcome {
	preds := make([]predictor.Outcome, 0, len(outcomes))
	for i, o := range outcomes {
		preds = append(preds, core.Predict(pcs[i]))
		core.Train(pcs[i], o)
	}
	return preds
}

func repeatPC(pc uint32, n int) []uint32 {
	pcs := make([]uint32, n)
	for i := range pcs {
		pcs[i] = pc
	}
	return pcs
}

func alternating(n int) []predictor.Outcome {
	outcomes := make([]predictor.Outcome, n)
	for i := range outcomes {
		outcomes[i] = predictor.OutcomeOf(i%2 == 0)
	}
	return outcomes
}

var _ = Describe("Core", func() {
	Describe("Default configuration", func() {
		It("should use the default geometry", func() {
			config := predictor.DefaultConfig()
			Expect(config.Variant).To(Equal(predictor.Static))
			Expect(config.GlobalHistoryBits).To(Equal(uint(14)))
			Expect(config.LocalHistoryBits).To(Equal(uint(10)))
			Expect(config.PCIndexBits).To(Equal(uint(10)))
		})
	})

	Describe("ParseSpec", func() {
		It("should parse gshare with a history width", func() {
			config, err := predictor.ParseSpec("gshare:13")
			Expect(err).NotTo(HaveOccurred())
			Expect(config.Variant).To(Equal(predictor.Gshare))
			Expect(config.GlobalHistoryBits).To(Equal(uint(13)))
		})

		It("should parse tournament with three widths", func() {
			config, err := predictor.ParseSpec("tournament:9:10:11")
			Expect(err).NotTo(HaveOccurred())
			Expect(config.Variant).To(Equal(predictor.Tournament))
			Expect(config.GlobalHistoryBits).To(Equal(uint(9)))
			Expect(config.LocalHistoryBits).To(Equal(uint(10)))
			Expect(config.PCIndexBits).To(Equal(uint(11)))
		})

		It("should keep default widths when none are given", func() {
			config, err := predictor.ParseSpec("Tournament")
			Expect(err).NotTo(HaveOccurred())
			Expect(config.GlobalHistoryBits).To(Equal(uint(14)))
		})

		It("should round trip through String", func() {
			for _, spec := range []string{"static", "gshare:7", "tournament:9:10:11", "custom", "hybrid"} {
				config, err := predictor.ParseSpec(spec)
				Expect(err).NotTo(HaveOccurred())
				Expect(config.String()).To(Equal(spec))
			}
		})

		It("should reject unknown variants", func() {
			_, err := predictor.ParseSpec("tage")
			Expect(err).To(HaveOccurred())
		})

		It("should reject bad widths", func() {
			_, err := predictor.ParseSpec("gshare:x")
			Expect(err).To(HaveOccurred())
			_, err = predictor.ParseSpec("gshare:0")
			Expect(err).To(HaveOccurred())
		})

		It("should reject extra arguments", func() {
			_, err := predictor.ParseSpec("gshare:1:2")
			Expect(err).To(HaveOccurred())
			_, err = predictor.ParseSpec("custom:5")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Config validation", func() {
		It("should accept every default configuration", func() {
			for _, v := range predictor.Variants() {
				c := predictor.DefaultConfig()
				c.Variant = v
				Expect(c.Validate()).To(Succeed())
			}
		})

		It("should reject widths the tables cannot hold", func() {
			c, err := predictor.ParseSpec("gshare:64")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Validate()).To(MatchError(ContainSubstring("global_history_bits")))

			c, err = predictor.ParseSpec("tournament:10:10:33")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Validate()).To(MatchError(ContainSubstring("pc_index_bits")))

			c, err = predictor.ParseSpec(fmt.Sprintf("gshare:%d", predictor.MaxTableBits))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Validate()).To(Succeed())
		})

		It("should reject zero widths and unknown variants", func() {
			c := predictor.DefaultConfig()
			c.LocalHistoryBits = 0
			Expect(c.Validate()).To(MatchError(ContainSubstring("local_history_bits")))

			c = predictor.DefaultConfig()
			c.Variant = predictor.Variant(99)
			Expect(c.Validate()).NotTo(Succeed())
		})
	})

	Describe("Variant text encoding", func() {
		It("should unmarshal names case-insensitively", func() {
			var v predictor.Variant
			Expect(v.UnmarshalText([]byte("GSHARE"))).To(Succeed())
			Expect(v).To(Equal(predictor.Gshare))

			text, err := predictor.Custom.MarshalText()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(text)).To(Equal("custom"))
		})
	})

	Describe("Static", func() {
		It("should always predict taken", func() {
			core := predictor.New(predictor.Config{Variant: predictor.Static})
			for i := 0; i < 10; i++ {
				Expect(core.Predict(uint32(i * 4))).To(Equal(T))
				core.Train(uint32(i*4), N)
			}
			Expect(core.Name()).To(Equal("Static"))
		})
	})

	Describe("Gshare", func() {
		newGshare := func(bits uint) *predictor.Core {
			return predictor.New(predictor.Config{
				Variant:           predictor.Gshare,
				GlobalHistoryBits: bits,
			})
		}

		It("should initially predict not taken", func() {
			core := newGshare(4)
			Expect(core.Predict(0x10)).To(Equal(N))
		})

		It("should predict taken once the counter crosses into weakly taken", func() {
			core := newGshare(4)
			pc := uint32(0x10)

			// Each training shifts the history and so moves the index until
			// the history saturates at all ones.
			for i := 0; i < 4; i++ {
				core.Train(pc, T)
			}
			Expect(core.Predict(pc)).To(Equal(N))

			core.Train(pc, T)
			Expect(core.Predict(pc)).To(Equal(T))
		})

		It("should reproduce the two-bit history regression trace", func() {
			core := newGshare(2)
			preds := replay(core, repeatPC(0, 4), []predictor.Outcome{T, T, N, T})
			Expect(preds).To(Equal([]predictor.Outcome{N, N, N, N}))
		})

		It("should predict taken after the history saturates", func() {
			core := newGshare(2)
			preds := replay(core, repeatPC(0, 5), []predictor.Outcome{T, T, T, T, T})
			Expect(preds).To(Equal([]predictor.Outcome{N, N, N, T, T}))
		})

		It("should learn an alternating pattern", func() {
			core := newGshare(4)
			outcomes := alternating(60)
			preds := replay(core, repeatPC(0x40, 60), outcomes)
			Expect(preds[40:]).To(Equal(outcomes[40:]))
		})
	})

	Describe("Tournament", func() {
		var core *predictor.Core

		BeforeEach(func() {
			core = predictor.New(predictor.Config{
				Variant:           predictor.Tournament,
				GlobalHistoryBits: 4,
				LocalHistoryBits:  4,
				PCIndexBits:       4,
			})
		})

		It("should initially predict not taken", func() {
			Expect(core.Predict(0x1000)).To(Equal(N))
		})

		It("should learn an always-taken branch", func() {
			for i := 0; i < 10; i++ {
				core.Train(0x1000, T)
			}
			Expect(core.Predict(0x1000)).To(Equal(T))
		})

		It("should learn an alternating branch", func() {
			outcomes := alternating(80)
			preds := replay(core, repeatPC(0x1000, 80), outcomes)
			Expect(preds[60:]).To(Equal(outcomes[60:]))
		})
	})

	Describe("Custom", func() {
		It("should override external widths", func() {
			core := predictor.New(predictor.Config{
				Variant:           predictor.Custom,
				GlobalHistoryBits: 3,
				LocalHistoryBits:  3,
				PCIndexBits:       3,
			})
			config := core.Config()
			Expect(config.GlobalHistoryBits).To(Equal(uint(predictor.PerceptronWeights - 1)))
			Expect(config.PCIndexBits).To(Equal(uint(predictor.PerceptronIndexBits)))
		})

		It("should predict taken with zero weights", func() {
			core := predictor.New(predictor.Config{Variant: predictor.Custom})
			Expect(core.Predict(0x400)).To(Equal(T))
		})

		It("should learn a not-taken branch", func() {
			core := predictor.New(predictor.Config{Variant: predictor.Custom})
			for i := 0; i < 20; i++ {
				core.Train(0x400, N)
			}
			Expect(core.Predict(0x400)).To(Equal(N))
		})

		It("should keep predicting taken after long taken training", func() {
			core := predictor.New(predictor.Config{Variant: predictor.Custom})
			for i := 0; i < 300; i++ {
				core.Train(0x400, T)
			}
			Expect(core.Predict(0x400)).To(Equal(T))
		})

		It("should learn an alternating pattern", func() {
			core := predictor.New(predictor.Config{Variant: predictor.Custom})
			outcomes := alternating(240)
			preds := replay(core, repeatPC(0x400, 240), outcomes)
			Expect(preds[200:]).To(Equal(outcomes[200:]))
		})
	})

	Describe("Hybrid", func() {
		It("should use its fixed geometry", func() {
			core := predictor.New(predictor.Config{
				Variant:           predictor.Hybrid,
				GlobalHistoryBits: 2,
			})
			config := core.Config()
			Expect(config.GlobalHistoryBits).To(Equal(uint(11)))
			Expect(config.LocalHistoryBits).To(Equal(uint(10)))
			Expect(config.PCIndexBits).To(Equal(uint(9)))
		})

		It("should learn an always-taken branch", func() {
			core := predictor.New(predictor.Config{Variant: predictor.Hybrid})
			for i := 0; i < 20; i++ {
				core.Train(0x2000, T)
			}
			Expect(core.Predict(0x2000)).To(Equal(T))
		})
	})

	Describe("Unknown variant", func() {
		It("should predict not taken and ignore training", func() {
			core := predictor.New(predictor.Config{Variant: predictor.Variant(99)})
			Expect(core.Predict(0x1000)).To(Equal(N))
			Expect(func() { core.Train(0x1000, T) }).NotTo(Panic())
			Expect(core.Predict(0x1000)).To(Equal(N))
			Expect(core.Name()).To(Equal("Variant(99)"))
		})
	})

	Describe("Predict", func() {
		It("should be a pure read for every variant", func() {
			outcomes := []predictor.Outcome{T, N, T, T, N, N, T, N, T, T}
			for _, v := range predictor.Variants() {
				core := predictor.New(predictor.Config{
					Variant:           v,
					GlobalHistoryBits: 6,
					LocalHistoryBits:  6,
					PCIndexBits:       6,
				})
				for i, o := range outcomes {
					pc := uint32(0x100 + 4*(i%3))
					first := core.Predict(pc)
					Expect(core.Predict(pc)).To(Equal(first), v.String())
					core.Train(pc, o)
				}
			}
		})
	})

	Describe("Reset", func() {
		It("should restore the initial predictions", func() {
			for _, v := range predictor.Variants() {
				config := predictor.Config{
					Variant:           v,
					GlobalHistoryBits: 5,
					LocalHistoryBits:  5,
					PCIndexBits:       5,
				}
				fresh := predictor.New(config)
				core := predictor.New(config)
				for i := 0; i < 50; i++ {
					core.Train(0x80, predictor.OutcomeOf(i%3 != 0))
				}
				core.Reset()
				Expect(core.Predict(0x80)).To(Equal(fresh.Predict(0x80)), v.String())
			}
		})
	})

	Describe("Independent instances", func() {
		It("should not share state", func() {
			config := predictor.Config{Variant: predictor.Gshare, GlobalHistoryBits: 3}
			a := predictor.New(config)
			b := predictor.New(config)
			for i := 0; i < 10; i++ {
				a.Train(0, T)
			}
			Expect(a.Predict(0)).To(Equal(T))
			Expect(b.Predict(0)).To(Equal(N))
		})
	})
})
