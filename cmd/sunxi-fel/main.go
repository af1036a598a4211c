package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JoshuaDoes/logger"
	felutils "github.com/JoshuaDoes/sunxi-fel"
	"github.com/google/gousb"
	"github.com/spf13/pflag"
)

const (
	app = "sunxi-fel"
	ver = "v0.1.0"
	dev = "JoshuaDoes"
)

var (
	help   = false
	verify = false
	strict = false
	wait   = false

	config  = "sunxi-fel.yml"
	fes1    = ""
	uboot   = ""
	uart    = ""
	baud    = 0
	verbose = -1
	vid     = uint16(0)
	pid     = uint16(0)

	address = uint32(0)
	length  = uint32(0)
	in      = ""
	out     = ""

	log *logger.Logger
)

func usage() {
	prog := strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	text := fmt.Sprintf(
		" sunxi-fel drives an Allwinner SoC in FEL mode over USB: it brings up DRAM with fes1,"+
			" runs commands through uboot and reads or writes memory and NAND.\n"+
			"\n"+
			" Usage of %s: %s [flags] <verb> [args]\n"+
			"\n"+
			" > Verbs\n"+
			" list                   | Lists attached FEL devices\n"+
			" consoles               | Lists serial ports usable with --uart\n"+
			" verify                 | Prints the board and firmware of the device\n"+
			" read-mem               | Reads --length bytes of memory at --address\n"+
			" write-mem [file]       | Writes a file to memory at --address\n"+
			" exec                   | Jumps to --address\n"+
			" uboot <command...>     | Runs a uboot command, add --wait if it ends in efex_test\n"+
			" read-flash             | Reads --length bytes of NAND at --address\n"+
			" write-flash [file]     | Writes a file to NAND at --address\n"+
			" read-uboot             | Dumps the uboot partition\n"+
			" write-uboot [file]     | Flashes uboot\n"+
			" read-boot              | Dumps the kernel boot image\n"+
			" write-boot [file]      | Flashes a kernel boot image\n"+
			" memboot [file]         | Boots a kernel boot image from DRAM without flashing it\n"+
			"\n"+
			" > Flags\n"+
			" -h, --help      | none   | Prints the help you see now and ignores other arguments\n"+
			" -c, --config    | string | YAML config to read defaults from              | %s\n"+
			" --fes1          | string | fes1 image used to initialize DRAM\n"+
			" --uboot         | string | uboot image used to run commands\n"+
			" -a, --address   | number | Memory or NAND address\n"+
			" -l, --length    | number | Number of bytes to read\n"+
			" -i, --in        | string | File to write, if not given as an argument\n"+
			" -o, --out       | string | File to save reads to, .hex for Intel HEX      | stdout\n"+
			" --verify        | none   | Reads flashed images back to verify them\n"+
			" --wait          | none   | Waits for the device to return after a uboot command\n"+
			" --strict        | none   | Tags every transfer and checks the device echoes it\n"+
			" --vid, --pid    | hex    | Additional USB IDs to look for\n"+
			" -u, --uart      | string | Serial port of the debug UART to mirror\n"+
			" -b, --baud      | number | Baud rate of the debug UART\n"+
			" -v, --verbosity | number | Log verbosity, 0 to 3\n",
		prog, prog, config)
	fmt.Fprintf(os.Stderr, "%s\n", text)
}

func main() {
	fmt.Printf("%s %s - %s\n", app, ver, dev)

	pflag.Usage = usage
	pflag.CommandLine.SortFlags = false
	pflag.BoolVarP(&help, "help", "h", false, "")
	pflag.BoolVar(&verify, "verify", false, "")
	pflag.BoolVar(&wait, "wait", false, "")
	pflag.BoolVar(&strict, "strict", false, "")
	pflag.StringVarP(&config, "config", "c", config, "")
	pflag.StringVar(&fes1, "fes1", fes1, "")
	pflag.StringVar(&uboot, "uboot", uboot, "")
	pflag.Uint32VarP(&address, "address", "a", address, "")
	pflag.Uint32VarP(&length, "length", "l", length, "")
	pflag.StringVarP(&in, "in", "i", in, "")
	pflag.StringVarP(&out, "out", "o", out, "")
	pflag.Uint16Var(&vid, "vid", vid, "")
	pflag.Uint16Var(&pid, "pid", pid, "")
	pflag.StringVarP(&uart, "uart", "u", uart, "")
	pflag.IntVarP(&baud, "baud", "b", baud, "")
	pflag.IntVarP(&verbose, "verbosity", "v", verbose, "")
	pflag.Parse()

	if help || pflag.NArg() == 0 {
		usage()
		return
	}

	cfg, err := loadConfig(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		return
	}
	applyFlags(cfg)

	log = logger.NewLogger(app, cfg.Verbosity)
	felLog := &logAdapter{log}

	for _, pair := range cfg.Devices {
		felutils.RegisterDevicePair(gousb.ID(pair.VID), gousb.ID(pair.PID))
	}

	verb := pflag.Arg(0)
	if verb == "consoles" {
		listConsoles()
		return
	}

	if cfg.UART.Port != "" {
		console, err := felutils.OpenConsole(cfg.UART.Port, cfg.UART.Baud, felLog)
		if err != nil {
			log.Errorf("Error opening UART: %v", err)
			return
		}
		defer console.Close()
	}

	discovery := felutils.NewUSBDiscovery(felLog)
	defer discovery.Close()

	devices, err := discovery.FindFelDevices()
	if err != nil {
		log.Errorf("Error scanning for devices: %v", err)
		return
	}
	if verb == "list" {
		for _, t := range devices {
			log.Infoln("Found", t)
			t.Close()
		}
		if len(devices) == 0 {
			log.Infoln("No FEL devices found")
		}
		return
	}
	if len(devices) == 0 {
		log.Errorln("[!] No FEL device found, is it in FEL mode?")
		return
	}
	for _, extra := range devices[1:] {
		log.Infof("Ignoring %s", extra)
		extra.Close()
	}

	opts := []felutils.Option{felutils.WithLogger(felLog), felutils.WithDiscovery(discovery)}
	if cfg.StrictTags {
		opts = append(opts, felutils.WithStrictTags())
	}
	d := felutils.NewDevice(devices[0], opts...)
	defer d.Free()

	if err := isFile(cfg.Fes1); err == nil {
		if err := d.LoadFes1(cfg.Fes1); err != nil {
			log.Errorf("Error reading fes1 image: %v", err)
			return
		}
	} else {
		log.Debugf("No fes1 image: %v", err)
	}
	if err := isFile(cfg.Uboot); err == nil {
		if err := d.LoadUboot(cfg.Uboot); err != nil {
			log.Errorf("Error reading uboot image: %v", err)
			return
		}
	} else {
		log.Debugf("No uboot image: %v", err)
	}

	if err := d.Open(); err != nil {
		log.Errorf("Error opening device: %v", err)
		return
	}
	log.Infoln("Connected to", d)

	if err := run(d, verb, pflag.Args()[1:]); err != nil {
		log.Errorf("%s failed: %v", verb, err)
		return
	}
	log.Infof("%s done", verb)
}

func applyFlags(cfg *Config) {
	if fes1 != "" {
		cfg.Fes1 = fes1
	}
	if uboot != "" {
		cfg.Uboot = uboot
	}
	if uart != "" {
		cfg.UART.Port = uart
	}
	if baud > 0 {
		cfg.UART.Baud = baud
	}
	if verbose >= 0 {
		cfg.Verbosity = verbose
	}
	if strict {
		cfg.StrictTags = true
	}
	if vid != 0 && pid != 0 {
		cfg.Devices = append(cfg.Devices, DeviceIDs{VID: vid, PID: pid})
	}
}

func run(d *felutils.Device, verb string, args []string) error {
	progress := felutils.ProgressFunc(printProgress)

	switch verb {
	case "verify":
		resp, err := d.VerifyDevice()
		if err != nil {
			return err
		}
		log.Infoln(resp)
	case "read-mem":
		data, err := d.ReadMemory(address, length, progress)
		if err != nil {
			return err
		}
		return save(address, data)
	case "write-mem":
		data, err := load(args)
		if err != nil {
			return err
		}
		return d.WriteMemory(address, data, progress)
	case "exec":
		return d.Execute(address)
	case "uboot":
		if len(args) == 0 {
			return fmt.Errorf("no command given")
		}
		return d.RunUbootCommand(strings.Join(args, " "), !wait, progress)
	case "read-flash":
		data, err := d.ReadFlash(address, length, progress)
		if err != nil {
			return err
		}
		return save(address, data)
	case "write-flash":
		data, err := load(args)
		if err != nil {
			return err
		}
		return d.WriteFlash(address, felutils.PadToSectorBoundary(data, felutils.DefaultConstants.SectorSize), progress)
	case "read-uboot":
		data, err := felutils.ReadUboot(d, progress)
		if err != nil {
			return err
		}
		return save(felutils.DefaultConstants.UbootBaseF, data)
	case "write-uboot":
		data, err := load(args)
		if err != nil {
			return err
		}
		return felutils.WriteUboot(d, data, verify, progress)
	case "read-boot":
		data, err := felutils.ReadBootImage(d, progress)
		if err != nil {
			return err
		}
		return save(felutils.DefaultConstants.BootImageBaseF, data)
	case "write-boot":
		data, err := load(args)
		if err != nil {
			return err
		}
		return felutils.WriteBootImage(d, data, verify, progress)
	case "memboot":
		data, err := load(args)
		if err != nil {
			return err
		}
		return felutils.Memboot(d, data, progress)
	default:
		return fmt.Errorf("unknown verb '%s'", verb)
	}
	return nil
}

func listConsoles() {
	ports, err := felutils.ListConsoles()
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	for _, port := range ports {
		if port.IsUSB {
			log.Infof("%s (USB %s:%s %s)", port.Name, port.VID, port.PID, port.SerialNumber)
		} else {
			log.Infoln(port.Name)
		}
	}
}

// load reads the file named by the first argument or --in.
func load(args []string) ([]byte, error) {
	path := in
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, fmt.Errorf("no input file given")
	}
	if err := isFile(path); err != nil {
		return nil, err
	}
	return felutils.LoadImage(path)
}

// save writes data to --out, or dumps it to stdout.
func save(base uint32, data []byte) error {
	if out == "" {
		fmt.Print(hex.Dump(data))
		return nil
	}
	if err := felutils.SaveImage(out, base, data); err != nil {
		return err
	}
	log.Infof("Saved %d bytes to '%s'", len(data), out)
	return nil
}
