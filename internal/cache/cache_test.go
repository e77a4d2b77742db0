package cache_test

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/cache"
	"github.com/san-kum/capsim/internal/compare"
)

func sampleTable() compare.Table {
	direct := battery.Variant{Name: battery.NameDirect, Capacitance: battery.CapacitanceNone}
	diff := battery.Variant{Name: battery.NameDifferential, Capacitance: battery.CapacitanceDifferential}
	sol := func(v battery.Variant, crate float64) *battery.Solution {
		return &battery.Solution{
			Variant: v,
			Npts:    20,
			Crate:   crate,
			Times:   []float64{0, 0.5, 0.9},
			Series: map[string][]float64{
				battery.VarVoltage:     {2.1, 2.0, math.NaN()},
				battery.VarTimeSeconds: {0, 1800, 3240},
			},
			SolveTime:  42 * time.Millisecond,
			Steps:      17,
			Terminated: crate > 1,
		}
	}
	return compare.Table{
		1: {{Variant: direct, Solution: sol(direct, 1)}, {Variant: diff, Solution: sol(diff, 1)}},
		2: {{Variant: direct, Solution: sol(direct, 2)}, {Variant: diff, Solution: sol(diff, 2)}},
	}
}

var _ = Describe("Store", func() {
	var (
		dir   string
		store *cache.Store
		grid  []float64
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		store = cache.New(filepath.Join(dir, "results"))
		grid = []float64{0, 1e-6, 1e-3, 0.5, 1}
	})

	Describe("Load", func() {
		It("reports a missing entry as not found", func() {
			_, err := store.Load(cache.NameComparison, "")
			Expect(err).To(MatchError(cache.ErrNotFound))
			Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
		})

		It("rejects a file that is not a cache entry", func() {
			Expect(store.Init()).To(Succeed())
			Expect(os.WriteFile(store.Path("junk"), []byte("not gzip"), 0644)).To(Succeed())

			_, err := store.Load("junk", "")
			Expect(err).To(MatchError(cache.ErrCorrupt))
		})
	})

	Describe("Save then Load", func() {
		var table compare.Table

		BeforeEach(func() {
			table = sampleTable()
			path, err := store.Save(cache.NameComparison, table, grid, "abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(dir, "results", "capacitance_data.gob.gz")))
		})

		It("restores the table and grid", func() {
			entry, err := store.Load(cache.NameComparison, "abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Grid).To(Equal(grid))
			Expect(cmp.Diff(table, entry.Table, cmpopts.EquateNaNs())).To(BeEmpty())
			Expect(entry.Meta.Name).To(Equal(cache.NameComparison))
			Expect(entry.Meta.Fingerprint).To(Equal("abc123"))
			Expect(entry.Meta.ID.String()).NotTo(BeEmpty())
		})

		It("skips validation for an empty fingerprint", func() {
			_, err := store.Load(cache.NameComparison, "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a different fingerprint", func() {
			_, err := store.Load(cache.NameComparison, "def456")
			Expect(err).To(MatchError(cache.ErrStale))
		})

		It("keeps the two analyses apart", func() {
			_, err := store.Load(cache.NameConvergence, "")
			Expect(err).To(MatchError(cache.ErrNotFound))
		})

		It("replaces the entry and leaves no temp files", func() {
			first, err := store.Load(cache.NameComparison, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Save(cache.NameComparison, table.Restrict([]float64{2}), grid, "abc123")
			Expect(err).NotTo(HaveOccurred())

			second, err := store.Load(cache.NameComparison, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Meta.ID).NotTo(Equal(first.Meta.ID))
			Expect(second.Table.Params()).To(Equal([]float64{2}))

			files, err := os.ReadDir(store.Dir())
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(1))
		})
	})

	Describe("List", func() {
		It("returns nothing for a missing directory", func() {
			metas, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(metas).To(BeEmpty())
		})

		It("lists entries oldest first and skips foreign files", func() {
			_, err := store.Save(cache.NameComparison, sampleTable(), grid, "a")
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Save(cache.NameConvergence, sampleTable(), grid, "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0644)).To(Succeed())

			metas, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(metas).To(HaveLen(2))
			Expect(metas[0].Name).To(Equal(cache.NameComparison))
			Expect(metas[1].Name).To(Equal(cache.NameConvergence))
		})
	})

	It("rejects names that escape the directory", func() {
		_, err := store.Save("../x", sampleTable(), grid, "")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Fingerprint", func() {
	It("is 32 hex characters and stable", func() {
		a, err := cache.Fingerprint("voltages", []float64{1, 2}, []float64{0, 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(HaveLen(32))
		Expect(a).To(MatchRegexp("^[0-9a-f]{32}$"))

		b, err := cache.Fingerprint("voltages", []float64{1, 2}, []float64{0, 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(a))
	})

	It("changes with the sweep", func() {
		a, _ := cache.Fingerprint("voltages", []float64{1, 2})
		b, _ := cache.Fingerprint("voltages", []float64{1, 3})
		Expect(a).NotTo(Equal(b))
	})

	It("fails on values JSON cannot encode", func() {
		_, err := cache.Fingerprint(math.NaN())
		Expect(err).To(HaveOccurred())
	})
})
