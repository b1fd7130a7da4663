package cosim_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/san-kum/cosim/internal/cosim"
)

var _ = Describe("Engine", func() {
	var (
		clock *fakeClock
		model *gainModel
		rep   *collector
		cfg   cosim.Config
	)

	BeforeEach(func() {
		clock = newFakeClock()
		model = &gainModel{clock: clock, gain: 2}
		rep = &collector{}
		cfg = cosim.Config{StartTime: 0, StopTime: 1, StepSize: 0.1, Input: 0, Output: 1, Speed: 1}
	})

	run := func(ctx context.Context, opts ...cosim.Option) (cosim.Summary, error) {
		opts = append([]cosim.Option{cosim.WithClock(clock), cosim.WithReporter(rep)}, opts...)
		return cosim.New(model, cfg, opts...).Run(ctx)
	}

	Context("stepping", func() {
		It("should report ten results from 0 to 1 at 0.1", func() {
			summary, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.results).To(HaveLen(10))
			for i, r := range rep.results {
				Expect(r.Time).To(BeNumerically("~", 0.1*float64(i+1), 1e-9))
			}
			Expect(summary.Steps).To(Equal(10))
			Expect(summary.Reported).To(Equal(10))
			Expect(summary.FinalTime).To(BeNumerically("~", 1.0, 1e-12))
			Expect(model.terminated).To(Equal(1))
			Expect(model.closed).To(Equal(1))
		})

		It("should advance simulated time by exactly one step size", func() {
			_, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			prev := cfg.StartTime
			for _, r := range rep.results {
				Expect(r.Time).To(BeNumerically(">", prev))
				Expect(r.Time - prev).To(BeNumerically("~", cfg.StepSize, 1e-12))
				prev = r.Time
			}
		})

		It("should step from the communication point before advancing", func() {
			_, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(model.stepTimes).To(HaveLen(10))
			Expect(model.stepTimes[0]).To(Equal(0.0))
			Expect(model.stepTimes[9]).To(BeNumerically("~", 0.9, 1e-12))
		})

		DescribeTable("should complete ceil((stop-start)/step) steps",
			func(start, stop, step float64, want int) {
				cfg = cosim.Config{StartTime: start, StopTime: stop, StepSize: step, Output: 1}

				_, err := run(context.Background())

				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Steps()).To(Equal(want))
				Expect(rep.results).To(HaveLen(want))
				last := rep.results[want-1].Time
				Expect(last).To(BeNumerically(">=", stop-1e-9))
				Expect(last - stop).To(BeNumerically("<", step))
			},
			Entry("0..1 at 0.1", 0.0, 1.0, 0.1, 10),
			Entry("0..0.3 at 0.1", 0.0, 0.3, 0.1, 3),
			Entry("0..1 at 0.3", 0.0, 1.0, 0.3, 4),
			Entry("2..3 at 0.25", 2.0, 3.0, 0.25, 4),
			Entry("0..10 at 0.01", 0.0, 10.0, 0.01, 1000),
			Entry("step larger than the span", 0.0, 0.05, 0.1, 1),
		)
	})

	Context("pacing", func() {
		It("should sleep off the deficit when the model is faster than real time", func() {
			summary, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(clock.sleeps).To(HaveLen(9))
			for _, d := range clock.sleeps {
				Expect(d).To(Equal(100 * time.Millisecond))
			}
			Expect(summary.Sleeps).To(Equal(9))
			Expect(summary.Slept).To(Equal(900 * time.Millisecond))
		})

		It("should subtract model computation time from the sleep", func() {
			model.cost = fixedCost(30 * time.Millisecond)

			_, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(clock.sleeps).To(HaveLen(9))
			for _, d := range clock.sleeps {
				Expect(d).To(Equal(70 * time.Millisecond))
			}
		})

		It("should never sleep and never skip a step while overrunning", func() {
			model.cost = fixedCost(150 * time.Millisecond)

			summary, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(clock.sleeps).To(BeEmpty())
			Expect(rep.results).To(HaveLen(10))
			Expect(summary.MaxLag).To(Equal(450 * time.Millisecond))
		})

		It("should not catch up after a transient overrun", func() {
			model.cost = func(step int) time.Duration {
				if step == 1 {
					return 350 * time.Millisecond
				}
				return 0
			}

			_, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.results).To(HaveLen(10))
			Expect(clock.sleeps).To(HaveLen(6))
			Expect(clock.sleeps[0]).To(Equal(50 * time.Millisecond))
			for _, d := range clock.sleeps[1:] {
				Expect(d).To(Equal(100 * time.Millisecond))
			}
		})

		It("should scale the schedule by the speed factor", func() {
			cfg.Speed = 2

			_, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(clock.sleeps).To(HaveLen(9))
			Expect(clock.sleeps[0]).To(Equal(50 * time.Millisecond))
		})

		It("should not pace when the speed is zero", func() {
			cfg.Speed = 0

			_, err := run(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(clock.sleeps).To(BeEmpty())
			Expect(rep.results).To(HaveLen(10))
		})
	})

	Context("parameter updates", func() {
		var ch chan cosim.ParameterUpdate

		BeforeEach(func() {
			ch = make(chan cosim.ParameterUpdate, 8)
		})

		It("should apply an update enqueued before the run at the first step", func() {
			ch <- cosim.ParameterUpdate{Ref: 0, Value: 7.5}

			summary, err := run(context.Background(), cosim.WithUpdates(ch))

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.results[0].Output).To(Equal(15.0))
			Expect(rep.results[9].Output).To(Equal(15.0))
			Expect(summary.UpdatesApplied).To(Equal(1))
		})

		It("should apply at most one update per iteration in arrival order", func() {
			ch <- cosim.ParameterUpdate{Ref: 0, Value: 1}
			ch <- cosim.ParameterUpdate{Ref: 0, Value: 2}
			ch <- cosim.ParameterUpdate{Ref: 0, Value: 3}

			_, err := run(context.Background(), cosim.WithUpdates(ch))

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.outputs()[:4]).To(Equal([]float64{2, 4, 6, 6}))
		})

		It("should defer an update enqueued after the poll to the next iteration", func() {
			model.onStep = func(step int) {
				if step == 3 {
					ch <- cosim.ParameterUpdate{Ref: 0, Value: 4}
				}
			}

			_, err := run(context.Background(), cosim.WithUpdates(ch))

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.results[2].Output).To(Equal(0.0))
			Expect(rep.results[3].Output).To(Equal(8.0))
		})

		It("should see only the latest value sent through a mailbox", func() {
			mb := cosim.NewMailbox()
			mb.Send(cosim.ParameterUpdate{Ref: 0, Value: 1})
			mb.Send(cosim.ParameterUpdate{Ref: 0, Value: 5})

			_, err := run(context.Background(), cosim.WithUpdates(mb.Updates()))

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.results[0].Output).To(Equal(10.0))
		})

		It("should keep running after the update source closes", func() {
			mb := cosim.NewMailbox()
			mb.Send(cosim.ParameterUpdate{Ref: 0, Value: 3})
			mb.Close()

			_, err := run(context.Background(), cosim.WithUpdates(mb.Updates()))

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.results).To(HaveLen(10))
			Expect(rep.results[9].Output).To(Equal(6.0))
		})

		It("should survive a rejected write and finish every step", func() {
			ch <- cosim.ParameterUpdate{Ref: 9, Value: 1}
			ch <- cosim.ParameterUpdate{Ref: 0, Value: 2}

			summary, err := run(context.Background(), cosim.WithUpdates(ch))

			Expect(err).NotTo(HaveOccurred())
			Expect(rep.results).To(HaveLen(10))
			Expect(rep.results[0].Output).To(Equal(0.0))
			Expect(rep.results[1].Output).To(Equal(4.0))
			Expect(summary.WriteRejections).To(Equal(1))
			Expect(summary.UpdatesApplied).To(Equal(1))
			Expect(rep.warnings).To(HaveLen(1))
			Expect(errors.Is(rep.warnings[0], cosim.ErrWriteRejected)).To(BeTrue())
		})
	})

	Context("failures", func() {
		It("should stop on a rejected read with no result for that step", func() {
			model.failReadAt = 4

			summary, err := run(context.Background())

			Expect(errors.Is(err, cosim.ErrReadRejected)).To(BeTrue())
			Expect(rep.results).To(HaveLen(3))
			Expect(summary.Steps).To(Equal(4))
			Expect(summary.Reported).To(Equal(3))
			Expect(model.terminated).To(Equal(1))
			Expect(model.closed).To(Equal(1))

			var ce *cosim.Error
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Step).To(Equal(4))
			Expect(ce.Time).To(BeNumerically("~", 0.4, 1e-12))
			Expect(ce.Ref).To(Equal(cosim.ValueRef(1)))
			Expect(ce.Fatal()).To(BeTrue())
		})

		It("should keep the original error when cleanup also fails", func() {
			model.failReadAt = 2
			model.terminateErr = errors.New("slave hung up")

			_, err := run(context.Background())

			Expect(errors.Is(err, cosim.ErrReadRejected)).To(BeTrue())
			Expect(errors.Is(err, cosim.ErrTerminateFailed)).To(BeFalse())
			var ce *cosim.Error
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Cleanup).To(MatchError(ContainSubstring("slave hung up")))
		})

		It("should return a terminate failure after a clean run", func() {
			model.terminateErr = errors.New("slave hung up")

			_, err := run(context.Background())

			Expect(errors.Is(err, cosim.ErrTerminateFailed)).To(BeTrue())
			Expect(rep.results).To(HaveLen(10))
		})

		It("should reject invalid bounds without calling the model", func() {
			cfg.StepSize = 0

			_, err := run(context.Background())

			Expect(errors.Is(err, cosim.ErrSetupRejected)).To(BeTrue())
			Expect(model.setupCalls).To(Equal(0))
			Expect(model.terminated).To(Equal(0))
			Expect(model.closed).To(Equal(1))
		})

		It("should stop at the next iteration when canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			rep.onReport = func(cosim.StepResult) {
				if len(rep.results) == 2 {
					cancel()
				}
			}

			_, err := run(ctx)

			Expect(errors.Is(err, cosim.ErrCanceled)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(rep.results).To(HaveLen(2))
			Expect(model.terminated).To(Equal(1))
		})

		It("should not touch the model when canceled before start", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := run(ctx)

			Expect(errors.Is(err, cosim.ErrCanceled)).To(BeTrue())
			Expect(model.setupCalls).To(Equal(0))
			Expect(model.terminated).To(Equal(0))
		})

		It("should refuse to run twice", func() {
			eng := cosim.New(model, cfg, cosim.WithClock(clock), cosim.WithReporter(rep))
			_, err := eng.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			_, err = eng.Run(context.Background())

			Expect(errors.Is(err, cosim.ErrIllegalState)).To(BeTrue())
			Expect(model.terminated).To(Equal(1))
		})

		It("should refuse to step before initialization", func() {
			eng := cosim.New(model, cfg, cosim.WithClock(clock))

			_, err := eng.Step()

			Expect(errors.Is(err, cosim.ErrIllegalState)).To(BeTrue())
			Expect(model.steps).To(Equal(0))
		})
	})
})

var _ = Describe("Engine model protocol", func() {
	var (
		mockCtrl *gomock.Controller
		model    *MockModel
		rep      *collector
		cfg      cosim.Config
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		model = NewMockModel(mockCtrl)
		rep = &collector{}
		cfg = cosim.Config{
			StartTime:        0,
			StopTime:         1,
			StepSize:         0.5,
			Tolerance:        1e-6,
			ToleranceDefined: true,
			Input:            0,
			Output:           3,
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectInit := func() *gomock.Call {
		return model.EXPECT().ExitInitializationMode().Return(nil).After(
			model.EXPECT().EnterInitializationMode().Return(nil).After(
				model.EXPECT().SetupExperiment(cosim.Experiment{
					StartTime:        0,
					StopTime:         1,
					Tolerance:        1e-6,
					ToleranceDefined: true,
				}).Return(nil)))
	}

	It("should drive the model in lifecycle order", func() {
		gomock.InOrder(
			expectInit(),
			model.EXPECT().DoStep(0.0, 0.5, true).Return(nil),
			model.EXPECT().GetReal(cosim.ValueRef(3)).Return(1.5, nil),
			model.EXPECT().DoStep(0.5, 0.5, true).Return(nil),
			model.EXPECT().GetReal(cosim.ValueRef(3)).Return(2.5, nil),
			model.EXPECT().Terminate().Return(nil),
		)

		_, err := cosim.New(model, cfg, cosim.WithReporter(rep)).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(rep.results).To(Equal([]cosim.StepResult{{Time: 0.5, Output: 1.5}, {Time: 1.0, Output: 2.5}}))
	})

	It("should write a pending update before stepping", func() {
		ch := make(chan cosim.ParameterUpdate, 1)
		ch <- cosim.ParameterUpdate{Ref: 0, Value: 7.5}

		gomock.InOrder(
			expectInit(),
			model.EXPECT().SetReal(cosim.ValueRef(0), 7.5).Return(nil),
			model.EXPECT().DoStep(0.0, 0.5, true).Return(nil),
			model.EXPECT().GetReal(cosim.ValueRef(3)).Return(7.5, nil),
			model.EXPECT().DoStep(0.5, 0.5, true).Return(nil),
			model.EXPECT().GetReal(cosim.ValueRef(3)).Return(7.5, nil),
			model.EXPECT().Terminate().Return(nil),
		)

		_, err := cosim.New(model, cfg, cosim.WithReporter(rep), cosim.WithUpdates(ch)).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
	})

	It("should release a model whose setup was rejected without stepping", func() {
		model.EXPECT().SetupExperiment(gomock.Any()).Return(errors.New("bounds out of range"))

		_, err := cosim.New(model, cfg, cosim.WithReporter(rep)).Run(context.Background())

		Expect(errors.Is(err, cosim.ErrSetupRejected)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("bounds out of range")))
		Expect(rep.results).To(BeEmpty())
	})

	It("should terminate when leaving initialization mode fails", func() {
		gomock.InOrder(
			model.EXPECT().SetupExperiment(gomock.Any()).Return(nil),
			model.EXPECT().EnterInitializationMode().Return(nil),
			model.EXPECT().ExitInitializationMode().Return(errors.New("unsolvable initial system")),
			model.EXPECT().Terminate().Return(nil),
		)

		_, err := cosim.New(model, cfg).Run(context.Background())

		Expect(errors.Is(err, cosim.ErrInitModeFailed)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("exit initialization mode")))
	})

	It("should terminate when a step fails", func() {
		gomock.InOrder(
			expectInit(),
			model.EXPECT().DoStep(0.0, 0.5, true).Return(errors.New("solver diverged")),
			model.EXPECT().Terminate().Return(nil),
		)

		summary, err := cosim.New(model, cfg, cosim.WithReporter(rep)).Run(context.Background())

		Expect(errors.Is(err, cosim.ErrStepFailed)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("[step]")))
		Expect(summary.Steps).To(Equal(0))
		Expect(rep.results).To(BeEmpty())
	})
})
