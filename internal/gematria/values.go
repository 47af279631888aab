package gematria

// Method selects the letter-value scheme used to compute a phrase's
// numeric value.
type Method string

const (
	// MethodRegular is standard gematria: final letters carry the
	// value of their non-final form.
	MethodRegular Method = "regular"

	// MethodSmall is mispar katan: tens and hundreds reduced to a
	// single digit.
	MethodSmall Method = "small"

	// MethodFinalLetters is mispar sofit: final letters continue the
	// hundreds past ת (ך=500 … ץ=900).
	MethodFinalLetters Method = "finalLetters"
)

var letterValues = map[Method]map[rune]int{
	MethodRegular: {
		'א': 1, 'ב': 2, 'ג': 3, 'ד': 4, 'ה': 5, 'ו': 6, 'ז': 7, 'ח': 8, 'ט': 9,
		'י': 10, 'כ': 20, 'ך': 20, 'ל': 30, 'מ': 40, 'ם': 40, 'נ': 50, 'ן': 50,
		'ס': 60, 'ע': 70, 'פ': 80, 'ף': 80, 'צ': 90, 'ץ': 90, 'ק': 100, 'ר': 200,
		'ש': 300, 'ת': 400,
	},
	MethodSmall: {
		'א': 1, 'ב': 2, 'ג': 3, 'ד': 4, 'ה': 5, 'ו': 6, 'ז': 7, 'ח': 8, 'ט': 9,
		'י': 1, 'כ': 2, 'ך': 2, 'ל': 3, 'מ': 4, 'ם': 4, 'נ': 5, 'ן': 5,
		'ס': 6, 'ע': 7, 'פ': 8, 'ף': 8, 'צ': 9, 'ץ': 9, 'ק': 1, 'ר': 2,
		'ש': 3, 'ת': 4,
	},
	MethodFinalLetters: {
		'א': 1, 'ב': 2, 'ג': 3, 'ד': 4, 'ה': 5, 'ו': 6, 'ז': 7, 'ח': 8, 'ט': 9,
		'י': 10, 'כ': 20, 'ך': 500, 'ל': 30, 'מ': 40, 'ם': 600, 'נ': 50, 'ן': 700,
		'ס': 60, 'ע': 70, 'פ': 80, 'ף': 800, 'צ': 90, 'ץ': 900, 'ק': 100, 'ר': 200,
		'ש': 300, 'ת': 400,
	},
}
