package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/banshee-data/orbit.report/internal/orbit"
	"github.com/banshee-data/orbit.report/internal/orbit/geo"
	"github.com/banshee-data/orbit.report/internal/orbit/monitor"
	"github.com/banshee-data/orbit.report/internal/orbit/storage/sqlite"
)

const version = "0.2.0"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "migrate":
		handleMigrate(args)
	case "import":
		handleImport(args)
	case "calibrate":
		handleCalibrate(args)
	case "export":
		handleExport(args)
	case "serve":
		handleServe(args)
	case "version":
		fmt.Printf("orbit-report version %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`orbit-report - circular trajectory calibration for camera sequences

Usage: orbit-report <command> [options]

Commands:
  migrate    Apply database migrations
  import     Import a camera sequence from CSV
  calibrate  Run the estimation pipeline over a stored sequence
  export     Export a sequence as a Pix4D-style geolocation CSV
  serve      Start the review web server
  version    Show orbit-report version
  help       Show this help message

Common Flags:
  --db <path>          Path to the sqlite database (default: orbit.db)

Examples:
  # Prepare a fresh database
  orbit-report migrate --db orbit.db

  # Import a capture session
  orbit-report import --db orbit.db --name studio-scan --file poses.csv

  # Fill the gaps and review the result
  orbit-report calibrate --db orbit.db --sequence <id>
  orbit-report serve --db orbit.db --listen :8080

  # Export for photogrammetry
  orbit-report export --db orbit.db --sequence <id> --out geotags.csv`)
}

func handleMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "orbit.db", "path to sqlite db")
	migrationsDir := fs.String("migrations", "migrations", "path to migrations directory")
	fs.Parse(args)

	db, err := sqlite.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	v, dirty, err := db.MigrateVersion(*migrationsDir)
	if err != nil {
		log.Fatalf("migrate version: %v", err)
	}
	fmt.Printf("database at version %d (dirty=%v)\n", v, dirty)
}

func handleImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbPath := fs.String("db", "orbit.db", "path to sqlite db")
	name := fs.String("name", "", "sequence name (required)")
	file := fs.String("file", "", "CSV file of camera poses (required)")
	description := fs.String("description", "", "optional sequence description")
	fs.Parse(args)

	if *name == "" || *file == "" {
		log.Fatalf("name and file must be provided")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open %s: %v", *file, err)
	}
	defer f.Close()

	seq, err := readSequenceCSV(f, *name)
	if err != nil {
		log.Fatalf("parse %s: %v", *file, err)
	}

	db, err := sqlite.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := sqlite.NewSequenceStore(db)
	if err := store.InsertSequence(seq, *description); err != nil {
		log.Fatalf("import sequence: %v", err)
	}
	fmt.Printf("imported %d records as sequence %s\n", len(seq.Records), seq.SequenceID)
}

func handleCalibrate(args []string) {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	dbPath := fs.String("db", "orbit.db", "path to sqlite db")
	sequenceID := fs.String("sequence", "", "sequence id (required unless --all)")
	all := fs.Bool("all", false, "calibrate every stored sequence")
	tau := fs.Float64("tau", 0, "cluster correction distance scale (0 = default)")
	fs.Parse(args)

	if *sequenceID == "" && !*all {
		log.Fatalf("sequence must be provided (or use --all)")
	}

	db, err := sqlite.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	cfg := orbit.DefaultConfig()
	if *tau > 0 {
		cfg.Tau = *tau
	}

	sequences := sqlite.NewSequenceStore(db)
	runs := sqlite.NewRunStore(db)

	var ids []string
	if *all {
		infos, err := sequences.ListSequences()
		if err != nil {
			log.Fatalf("list sequences: %v", err)
		}
		for _, info := range infos {
			ids = append(ids, info.SequenceID)
		}
	} else {
		ids = []string{*sequenceID}
	}

	for _, id := range ids {
		seq, err := sequences.GetSequence(id)
		if err != nil {
			log.Fatalf("get sequence %s: %v", id, err)
		}

		res := orbit.Run(seq, cfg)
		if !res.Skipped {
			if err := sequences.SaveRecords(seq); err != nil {
				log.Fatalf("save records for %s: %v", id, err)
			}
		}
		runID, err := runs.InsertRun(&res)
		if err != nil {
			log.Fatalf("record run for %s: %v", id, err)
		}

		fmt.Printf("sequence %s: run %s\n", id, runID)
		if res.Skipped {
			fmt.Printf("  skipped: %v\n", res.Issues)
			continue
		}
		fmt.Printf("  circle: r=%.4f center=(%.4f, %.4f, %.4f)\n",
			res.Circle.Radius, res.Circle.Center.X, res.Circle.Center.Y, res.Circle.Center.Z)
		fmt.Printf("  fit: %s\n", res.Quality)
		fmt.Printf("  filled: %d interpolated, %d extrapolated\n", res.Interpolated, res.Extrapolated)
		for _, issue := range res.Issues {
			fmt.Printf("  issue: %s\n", issue)
		}
	}
}

func handleExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbPath := fs.String("db", "orbit.db", "path to sqlite db")
	sequenceID := fs.String("sequence", "", "sequence id (required)")
	out := fs.String("out", "", "output file (default: stdout)")
	lat := fs.Float64("lat", 0, "geodetic origin latitude")
	lon := fs.Float64("lon", 0, "geodetic origin longitude")
	fs.Parse(args)

	if *sequenceID == "" {
		log.Fatalf("sequence must be provided")
	}

	db, err := sqlite.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	seq, err := sqlite.NewSequenceStore(db).GetSequence(*sequenceID)
	if err != nil {
		log.Fatalf("get sequence: %v", err)
	}

	cfg := orbit.DefaultConfig()
	circle, err := orbit.FitCircle(seq.CalibratedPositions(), cfg)
	if err != nil {
		log.Fatalf("circle fit: %v", err)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	origin := geo.Origin{Lat: *lat, Lon: *lon}
	if err := geo.ExportPix4D(w, seq, circle, origin); err != nil {
		log.Fatalf("export: %v", err)
	}
	if *out != "" {
		fmt.Printf("exported sequence %s to %s\n", *sequenceID, *out)
	}
}

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "orbit.db", "path to sqlite db")
	listen := fs.String("listen", ":8080", "address to listen on")
	fs.Parse(args)

	db, err := sqlite.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   *listen,
		Sequences: sqlite.NewSequenceStore(db),
		Runs:      sqlite.NewRunStore(db),
		Pipeline:  orbit.DefaultConfig(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ws.Start(ctx); err != nil {
		log.Fatalf("web server: %v", err)
	}
}

// readSequenceCSV parses camera poses from CSV. Expected columns:
//
//	key,x,y,z,omega,phi,kappa,status
//
// Pose columns may be empty for uncalibrated records, and status defaults
// to "uncalibrated" when a record has no pose, "original" when it has one.
// Lines starting with '#' are skipped.
func readSequenceCSV(r io.Reader, name string) (*orbit.Sequence, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	seq := &orbit.Sequence{Name: name}
	line := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(fields) < 1 {
			continue
		}

		key, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad key %q: %w", line, fields[0], err)
		}
		rec := orbit.CameraRecord{Key: key, Status: orbit.StatusUncalibrated}

		pose, err := parsePose(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if pose != nil {
			rec.Position = &pose.position
			rec.Orientation = &pose.orientation
			rec.Status = orbit.StatusOriginal
		}
		if len(fields) >= 8 && fields[7] != "" {
			rec.Status = orbit.CalibrationStatus(fields[7])
		}

		seq.Records = append(seq.Records, rec)
	}
	if len(seq.Records) == 0 {
		return nil, fmt.Errorf("no records found")
	}
	return seq, nil
}

type csvPose struct {
	position    orbit.Point
	orientation orbit.Quaternion
}

// parsePose reads columns 1..6 (x,y,z,omega,phi,kappa). Returns nil when
// the pose columns are absent or empty.
func parsePose(fields []string) (*csvPose, error) {
	if len(fields) < 7 {
		return nil, nil
	}
	for _, f := range fields[1:7] {
		if f == "" {
			return nil, nil
		}
	}
	vals := make([]float64, 6)
	for i, f := range fields[1:7] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad pose value %q: %w", f, err)
		}
		vals[i] = v
	}
	return &csvPose{
		position:    orbit.Point{X: vals[0], Y: vals[1], Z: vals[2]},
		orientation: orbit.FromOPK(vals[3], vals[4], vals[5]),
	}, nil
}
