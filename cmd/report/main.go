// Command report renders offline charts for recorded runs: speed and
// cluster-range PNGs plus an interactive HTML page per run. With no -run
// it lists what the database holds.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/corvid-data/proximity.report/internal/db"
	"github.com/corvid-data/proximity.report/internal/report"
	"github.com/corvid-data/proximity.report/internal/units"
)

var (
	dbPath    = flag.String("db", "proximity_data.db", "path to sqlite db")
	runID     = flag.String("run", "", "run id to report on (empty lists recorded runs)")
	outDir    = flag.String("out", "", "output directory (default reports/<run>/<timestamp>)")
	unitsFlag = flag.String("units", "mps", "speed units for rendering (mps, mph, kmph, kph)")
	timezone  = flag.String("tz", "UTC", "IANA timezone for timestamps on the report page")
	maxFrames = flag.Int("max-frames", 0, "cap on loaded frames (0 uses the default)")
)

func main() {
	flag.Parse()

	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid units %q; valid units are: %s", *unitsFlag, units.GetValidUnitsString())
	}
	if !units.IsTimezoneValid(*timezone) {
		log.Fatalf("invalid timezone %q; common timezones are: %s", *timezone, units.GetValidTimezonesString())
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	if *runID == "" {
		if err := listRuns(os.Stdout, database, *timezone); err != nil {
			log.Fatalf("list runs: %v", err)
		}
		return
	}

	dir := *outDir
	if dir == "" {
		dir = report.MakeReportOutputDir("reports", *runID)
	}

	out, err := report.Generate(database, *runID, dir, report.Options{
		Units:     *unitsFlag,
		Timezone:  *timezone,
		MaxFrames: *maxFrames,
	})
	if err != nil {
		log.Fatalf("generate report: %v", err)
	}

	fmt.Printf("wrote %s\n", out.SpeedPNG)
	if out.RangePNG != "" {
		fmt.Printf("wrote %s\n", out.RangePNG)
	}
	fmt.Printf("wrote %s\n", out.HTML)
}

// listRuns prints one line per recorded run, newest first.
func listRuns(w io.Writer, database *db.DB, tz string) error {
	runs, err := database.ListRuns(0)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no recorded runs")
		return nil
	}

	for _, run := range runs {
		started, err := units.ConvertTime(run.StartedAt.UTC(), tz)
		if err != nil {
			return err
		}
		state := "running"
		if run.EndedAt != nil {
			state = "finished"
		}
		fmt.Fprintf(w, "%s  %s  %-8s  %s\n", run.ID, started.Format("2006-01-02 15:04:05"), state, run.Source)
	}

	return nil
}
