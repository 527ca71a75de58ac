package main

/*
 * CLI to drive the steg engine: hide, reveal, keygen, and a demo scenario.
 */

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/kryptco/steg"
	"github.com/kryptco/steg/bindb"
	"github.com/kryptco/steg/vocab"
)

func printFatal(msg string, args ...interface{}) {
	printErr(msg, args...)
	os.Exit(1)
}

func printErr(msg string, args ...interface{}) {
	os.Stderr.WriteString(fmt.Sprintf(msg, args...) + "\n")
}

func red(s string) string {
	c := color.New(color.FgHiRed)
	c.EnableColor()
	return c.SprintFunc()(s)
}

func green(s string) string {
	c := color.New(color.FgHiGreen)
	c.EnableColor()
	return c.SprintFunc()(s)
}

func openEngine(c *cli.Context) *steg.Engine {
	cfgPath := c.GlobalString("config")
	if cfgPath == "" {
		p, err := steg.DefaultConfigPath()
		if err != nil {
			printFatal(red(err.Error()))
		}
		cfgPath = p
	}
	cfg, err := steg.LoadConfig(cfgPath)
	if err != nil {
		printFatal(red(err.Error()))
	}

	tablesDir := c.GlobalString("tables")
	if tablesDir == "" {
		tablesDir, err = steg.TablesDir()
		if err != nil {
			printFatal(red(err.Error()))
		}
	}
	store, err := bindb.Open(tablesDir, cfg.NMax)
	if err != nil {
		printFatal(red("opening bindb tables: " + err.Error()))
	}

	vocabPath := c.GlobalString("vocab")
	f, err := os.Open(vocabPath)
	if err != nil {
		store.Close()
		printFatal(red("opening vocabulary: " + err.Error()))
	}
	defer f.Close()
	index, err := vocab.Load(f)
	if err != nil {
		store.Close()
		printFatal(red("loading vocabulary: " + err.Error()))
	}

	engine, err := steg.NewEngine(cfg, index, store)
	if err != nil {
		store.Close()
		printFatal(red("constructing engine: " + err.Error()))
	}
	return engine
}

func hideCommand(c *cli.Context) error {
	if len(c.Args()) < 2 {
		printFatal("usage: stegctl hide <plaintext> <key>")
	}
	engine := openEngine(c)
	defer engine.Close()

	s, err := engine.Hide(c.Args()[0], c.Args()[1])
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println(s.Text())
	if c.Bool("copy") {
		if err := clipboard.WriteAll(s.Text()); err != nil {
			printErr(red("copying to clipboard: " + err.Error()))
		} else {
			printErr(green("Stegotext copied to clipboard."))
		}
	}
	return nil
}

func revealCommand(c *cli.Context) error {
	if len(c.Args()) < 2 {
		printFatal("usage: stegctl reveal <stegotext> <key>")
	}
	engine := openEngine(c)
	defer engine.Close()

	s, err := engine.Reveal(c.Args()[0], c.Args()[1])
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println(s.Text())
	return nil
}

func keygenCommand(c *cli.Context) error {
	engine := openEngine(c)
	defer engine.Close()

	n := c.Int("bits")
	if n <= 0 {
		n = 16
	}
	key, err := engine.GenerateKey(n)
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println(key.Text())
	return nil
}

// demoVocab is the toy corpus demoCommand runs against: five words, each
// able to follow every other and to end a sentence, so any phrase over
// them tokenizes, encodes, and deep-decodes without a real corpus.
const demoVocab = "1\t_START_\tctl\n" +
	"2\t_END_\tctl\n" +
	"3\thidden\ta\n" +
	"4\tsecret\ta\n" +
	"5\tsuch\ta\n" +
	"6\tvery\ta\n" +
	"7\twow\ta\n"

const demoWords = 5

// writeDemoTables writes a counts-consistent toy BinDB pair into dir:
// START precedes each word once, and each word is followed once by END and
// once by every word including itself.
func writeDemoTables(dir string) error {
	writeRecord := func(f *os.File, ids []int32, count int64) error {
		buf := make([]byte, bindb.RecordSize(len(ids)))
		for i, id := range ids {
			binary.LittleEndian.PutUint32(buf[4*i:4*i+4], uint32(id))
		}
		binary.LittleEndian.PutUint64(buf[4*len(ids):], uint64(count))
		_, err := f.Write(buf)
		return err
	}

	uni, err := os.Create(filepath.Join(dir, "1gram"))
	if err != nil {
		return err
	}
	defer uni.Close()
	if err := writeRecord(uni, []int32{1}, demoWords); err != nil {
		return err
	}
	if err := writeRecord(uni, []int32{2}, demoWords); err != nil {
		return err
	}
	for w := int32(3); w < 3+demoWords; w++ {
		if err := writeRecord(uni, []int32{w}, demoWords+1); err != nil {
			return err
		}
	}

	bi, err := os.Create(filepath.Join(dir, "2gram"))
	if err != nil {
		return err
	}
	defer bi.Close()
	for w := int32(3); w < 3+demoWords; w++ {
		if err := writeRecord(bi, []int32{1, w}, 1); err != nil {
			return err
		}
	}
	for w := int32(3); w < 3+demoWords; w++ {
		if err := writeRecord(bi, []int32{w, 2}, 1); err != nil {
			return err
		}
		for x := int32(3); x < 3+demoWords; x++ {
			if err := writeRecord(bi, []int32{w, x}, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// demoCommand replays a full worked session against the built-in toy
// corpus: the plaintext is hidden under the real key and revealed with the
// real key, then the same stegotext is revealed with the decoy key to show
// that a wrong key never errors, and finally the plaintext is hidden under
// a freshly generated key. The XOR layer has no authentication, so a wrong
// key just decrypts to a different, still grammatical sentence.
func demoCommand(c *cli.Context) error {
	dir, err := os.MkdirTemp("", "steg-demo")
	if err != nil {
		printFatal(red(err.Error()))
	}
	defer os.RemoveAll(dir)
	if err := writeDemoTables(dir); err != nil {
		printFatal(red(err.Error()))
	}

	store, err := bindb.Open(dir, 2)
	if err != nil {
		printFatal(red(err.Error()))
	}
	index, err := vocab.Load(strings.NewReader(demoVocab))
	if err != nil {
		store.Close()
		printFatal(red(err.Error()))
	}
	cfg := steg.DefaultConfig()
	cfg.NMax = 2
	// The toy corpus is fully connected: every continuation is already
	// accounted for at bigram order, so back-off would have nothing left to
	// accept. Zero weights keep all mass at the bigram level.
	cfg.Alpha = big.NewRat(0, 1)
	cfg.Beta = big.NewRat(0, 1)
	cfg.AlphaString, cfg.BetaString = "0", "0"
	if c.IsSet("seed") {
		seed := c.Int64("seed")
		cfg.Seed = &seed
	}
	engine, err := steg.NewEngine(cfg, index, store)
	if err != nil {
		store.Close()
		printFatal(red(err.Error()))
	}
	defer engine.Close()

	plaintext := "wow such secret"
	realKey := "very hidden very hidden very hidden"
	decoyKey := "wow wow wow wow wow wow"

	fmt.Println(green("plaintext:"), plaintext)
	fmt.Println(green("real key:"), realKey)
	fmt.Println(green("decoy key:"), decoyKey)
	fmt.Println()

	p, err := engine.NewPlaintext(plaintext)
	if err != nil {
		printFatal(red(err.Error()))
	}
	k, err := engine.NewKey(realKey)
	if err != nil {
		printFatal(red(err.Error()))
	}
	d, err := engine.NewKey(decoyKey)
	if err != nil {
		printFatal(red(err.Error()))
	}
	if len(k.Bits) < len(p.Bits) {
		printFatal(red("the real key is too short to cover the plaintext"))
	}

	s, err := engine.Pk2s(p, k)
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println(green("stegotext:"), s.Text())

	revealed, err := engine.Sk2p(s, k)
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println(green("revealed with the real key:"), revealed.Text())

	fmt.Println()
	fmt.Println("revealing the same stegotext with the decoy key never fails; it just")
	fmt.Println("decodes to a different, equally plausible sentence:")
	wrong, err := engine.Sk2p(s, d)
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println(red("revealed with the decoy key:"), wrong.Text())

	genKey, err := engine.GenerateKey(16)
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println()
	fmt.Println(green("freshly generated key:"), genKey.Text())

	gs, err := engine.Pk2s(p, genKey)
	if err != nil {
		printFatal(red(err.Error()))
	}
	fmt.Println(green("stegotext under the generated key:"), gs.Text())
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "stegctl"
	app.Usage = "hide and reveal messages in generated English text"
	app.Version = steg.CurrentVersion.String()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to config.json (default ~/.steg/config.json)"},
		cli.StringFlag{Name: "tables", Usage: "bindb tables directory (default ~/.steg/tables)"},
		cli.StringFlag{Name: "vocab", Usage: "vocabulary index path", Value: "vocab.tsv"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "hide",
			Usage:  "stegctl hide <plaintext> <key> -- hide plaintext in generated stegotext under key.",
			Action: hideCommand,
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "copy", Usage: "copy the stegotext to the clipboard"},
			},
		},
		{
			Name:   "reveal",
			Usage:  "stegctl reveal <stegotext> <key> -- recover the plaintext hidden in stegotext under key.",
			Action: revealCommand,
		},
		{
			Name:   "keygen",
			Usage:  "stegctl keygen -- generate a fresh random key phrase.",
			Action: keygenCommand,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "bits", Usage: "number of random bits to seed the key interval with", Value: 16},
			},
		},
		{
			Name:   "demo",
			Usage:  "stegctl demo -- hide/reveal walkthrough against a built-in toy corpus.",
			Action: demoCommand,
			Flags: []cli.Flag{
				cli.Int64Flag{Name: "seed", Usage: "seed the RNG for a reproducible walkthrough"},
			},
		},
	}
	app.Run(os.Args)
}
