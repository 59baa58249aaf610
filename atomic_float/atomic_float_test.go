package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicMax(t *testing.T) {
	Convey("When AtomicMax is called", t, func() {
		Convey("Smaller candidates leave the value in place", func() {
			af := NewAtomicFloat64(10)
			So(af.AtomicMax(3), ShouldEqual, 10.0)
			So(af.AtomicMax(12.5), ShouldEqual, 12.5)
			So(af.AtomicRead(), ShouldEqual, 12.5)
		})

		Convey("When many writers race to raise the value", func() {
			af := NewAtomicFloat64(0)
			num_writers := 200

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(num_writers)
			for i := 0; i < num_writers; i++ {
				go func(candidate float64) {
					<-start
					af.AtomicMax(candidate)
					wg.Done()
				}(float64(i))
			}

			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, float64(num_writers-1))
		})
	})
}
