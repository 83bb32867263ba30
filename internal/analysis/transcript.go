package analysis

// Transcript is the raw text of an earnings call.
type Transcript string

// SampleTranscript is served when the caller supplies no transcript of its own.
const SampleTranscript Transcript = "\n" +
	"    Good afternoon everyone, and thank you for joining our Q4 earnings call. \n" +
	"    We are pleased to report strong growth in our digital services segment, with a 17% YoY increase. \n" +
	"    However, headwinds in the US banking sector have affected our BFSI vertical slightly.\n" +
	"\n" +
	"    Looking ahead, we are confident in achieving 12-14% revenue growth next year.\n" +
	"    We had previously announced a margin target of 21%, and we have successfully maintained it.\n" +
	"    We are also expanding in Europe and expect this to contribute to revenues in the next two quarters.\n" +
	"    "

func (t Transcript) String() string {
	return string(t)
}
