package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"vrpsolve/internal/buildinfo"
	"vrpsolve/internal/vrp"
)

// costTol absorbs the 2-decimal rounding of reported results.
const costTol = 0.1

type resultLine struct {
	Instance string  `json:"Instance"`
	Result   float64 `json:"Result"`
	Solution string  `json:"Solution"`
}

func main() {
	var (
		instDir     = flag.String("dir", ".", "directory holding the instance files")
		ext         = flag.String("ext", "", "extension appended to instance names")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	var in io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("opening results: %v", err)
		}
		defer f.Close()
		in = f
	}

	failures := 0
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var res resultLine
		if err := json.Unmarshal(line, &res); err != nil {
			log.Printf("line %d: bad result JSON: %v", lineNo, err)
			failures++
			continue
		}
		inst, err := vrp.LoadInstance(filepath.Join(*instDir, res.Instance+*ext))
		if err != nil {
			log.Printf("line %d: %v", lineNo, err)
			failures++
			continue
		}
		if err := vrp.CheckRouteString(inst, res.Solution, res.Result, costTol); err != nil {
			log.Printf("line %d: %s: INVALID: %v", lineNo, res.Instance, err)
			failures++
			continue
		}
		fmt.Printf("%s: OK (cost %.2f)\n", res.Instance, res.Result)
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("reading results: %v", err)
	}
	if failures > 0 {
		log.Fatalf("%d result(s) failed validation", failures)
	}
}
