package cosim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cosim/internal/cosim"
)

var _ = Describe("Mailbox", func() {
	var mb *cosim.Mailbox

	BeforeEach(func() {
		mb = cosim.NewMailbox()
	})

	It("should deliver a single update", func() {
		Expect(mb.Send(cosim.ParameterUpdate{Ref: 2, Value: 1.5})).To(BeFalse())

		Eventually(mb.Updates()).Should(Receive(Equal(cosim.ParameterUpdate{Ref: 2, Value: 1.5})))
	})

	It("should replace a pending update with a newer one", func() {
		mb.Send(cosim.ParameterUpdate{Value: 1})
		Expect(mb.Send(cosim.ParameterUpdate{Value: 2})).To(BeTrue())
		Expect(mb.Send(cosim.ParameterUpdate{Value: 3})).To(BeTrue())

		Expect(mb.Updates()).To(Receive(Equal(cosim.ParameterUpdate{Value: 3})))
		Expect(mb.Updates()).NotTo(Receive())
	})

	It("should never block the producer", func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 1000; i++ {
				mb.Send(cosim.ParameterUpdate{Value: float64(i)})
			}
		}()

		Eventually(done).Should(BeClosed())
		Expect(mb.Updates()).To(Receive(Equal(cosim.ParameterUpdate{Value: 999})))
	})

	It("should hand over the pending update before reporting closed", func() {
		mb.Send(cosim.ParameterUpdate{Value: 4})
		mb.Close()
		mb.Close()

		var u cosim.ParameterUpdate
		Expect(mb.Updates()).To(Receive(&u))
		Expect(u.Value).To(Equal(4.0))
		Expect(mb.Updates()).To(BeClosed())
	})
})
