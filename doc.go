/*
RTLEFERGY decodes power readings from Efergy energy monitors out of the
FM-demodulated sample stream produced by rtl_fm.

Execute with rtl_fm feeding samples on stdin:

	rtl_fm -f 433550000 -s 200000 -r 96000 -A fast | rtlefergy

Each validated frame prints one line:

	03/22/14,17:15:04,424.687500

Command-line flags:

	-device=e2

Selects the transmitter variant: e2 for the 8-byte E2 Classic protocol,
elite for the 9-byte Elite 3.0 TPM.

	-voltage=0

Reference line voltage for the power computation. 0 uses the device
default (240 for e2, 1 for elite). Match your local line voltage for best
results.

	-logfile=""

Duplicates output lines to a file opened in append mode. Failure to open
the file is fatal. -crlf switches the file to \r\n line endings and
-flushevery sets how many readings are buffered between flushes, bounding
flash wear on small systems.

	-analyze=false

Runs the diagnostic analysis mode instead of the normal decode loop.
Analysis captures the raw samples around each detected preamble and prints
sample statistics, pulse-run histograms and a best-effort decode from both
signal polarities. -verbosity (0 to 3) selects how much is printed:

	0  decoded bytes, computed checksum and power estimate only
	1  adds sample counts, average sample values and wave centering,
	   which helps find the best frequency: if the center is too high,
	   lower the frequency, otherwise raise it
	2  adds the consecutive-sample pulse counts the decoder classifies
	   bits from
	3  adds a raw dump of the captured samples

	-centersamples, -preamblecount, -minlowbit, -minhighbit,
	-recalfailures

Demodulation tunables: warm-up block size, preamble run length, the
pulse-width thresholds separating noise from 0 and 0 from 1, and how many
consecutive checksum failures trigger a wave-center recalibration.

	-config=""

YAML file providing any of the above; explicit flags win.

	-format="plain"

Output format: plain, csv, json or xml.

	-samplefile=""

Reads samples from a file instead of stdin, for replaying captures.

Every flag can also be set through an RTLEFERGY_ prefixed environment
variable, e.g. RTLEFERGY_DEVICE=elite.
*/
package main
