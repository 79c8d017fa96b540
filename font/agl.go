package font

// adobeGlyphList is a curated, high-frequency subset of the Adobe
// Glyph List (the full table is ~4,300 entries maintained by Adobe;
// retrieval pack had no generator output to mint it from, so this
// ships the names a /Differences table realistically introduces
// beyond what StandardEnc/WinAnsiEnc/MacRomanEnc already cover --
// ligatures, additional punctuation and a broader Latin Extended-A
// range). Most names the named encodings use are not in this table.
// GlyphToRune checks this table first, then the "uniXXXX"/"uXXXXXX"
// convention, then a single-character name; a name matching none of
// these (such as "space" or "eacute") is not resolved, and
// Info.Unicode then falls back to the character code itself.
var adobeGlyphList = map[string]rune{
	"fi": 'ﬁ', "fl": 'ﬂ', "ffi": 'ﬃ', "ffl": 'ﬄ', "ff": 'ﬀ',
	"dotlessi": 'ı', "dotlessj": 'ȷ',
	"Lslash": 'Ł', "lslash": 'ł', "Dcroat": 'Đ', "dcroat": 'đ',
	"OE": 'Œ', "oe": 'œ',
	"Amacron": 'Ā', "amacron": 'ā', "Emacron": 'Ē', "emacron": 'ē',
	"Imacron": 'Ī', "imacron": 'ī', "Omacron": 'Ō', "omacron": 'ō',
	"Umacron": 'Ū', "umacron": 'ū',
	"Abreve": 'Ă', "abreve": 'ă', "Ebreve": 'Ĕ', "ebreve": 'ĕ',
	"Ibreve": 'Ĭ', "ibreve": 'ĭ', "Obreve": 'Ŏ', "obreve": 'ŏ',
	"Uring": 'Ů', "uring": 'ů',
	"Cacute": 'Ć', "cacute": 'ć', "Cdotaccent": 'Ċ', "cdotaccent": 'ċ',
	"Ccaron": 'Č', "ccaron": 'č', "Dcaron": 'Ď', "dcaron": 'ď',
	"Eogonek": 'Ę', "eogonek": 'ę', "Ecaron": 'Ě', "ecaron": 'ě',
	"Gbreve": 'Ğ', "gbreve": 'ğ', "Lacute": 'Ĺ', "lacute": 'ĺ',
	"Lcaron": 'Ľ', "lcaron": 'ľ', "Nacute": 'Ń', "nacute": 'ń',
	"Ncaron": 'Ň', "ncaron": 'ň', "Ohungarumlaut": 'Ő', "ohungarumlaut": 'ő',
	"Racute": 'Ŕ', "racute": 'ŕ', "Rcaron": 'Ř', "rcaron": 'ř',
	"Sacute": 'Ś', "sacute": 'ś', "Scedilla": 'Ş', "scedilla": 'ş',
	"Tcaron": 'Ť', "tcaron": 'ť', "Uhungarumlaut": 'Ű', "uhungarumlaut": 'ű',
	"Uogonek": 'Ų', "uogonek": 'ų', "Zacute": 'Ź', "zacute": 'ź',
	"Zdotaccent": 'Ż', "zdotaccent": 'ż',
	"quotesinglbase": '‚', "quotedblbase": '„',
	"guilsinglleft": '‹', "guilsinglright": '›',
	"nbspace": ' ', "thinspace": ' ', "emspace": ' ',
	"enspace": ' ', "figurespace": ' ',
	"minus": '−', "periodcentered": '·', "bullet": '•',
	"onedotenleader": '․', "twodotenleader": '‥',
	"ellipsis": '…', "dagger": '†', "daggerdbl": '‡',
	"perthousand": '‰', "trademark": '™', "Euro": '€',
	"Omega": 'Ω', "mu1": 'µ', "Delta": 'Δ',
	"Alpha": 'Α', "Beta": 'Β', "Gamma": 'Γ', "Epsilon": 'Ε',
	"alpha": 'α', "beta": 'β', "gamma": 'γ', "delta": 'δ',
	"epsilon": 'ε', "pi": 'π', "sigma": 'σ', "lambda": 'λ',
	"infinity": '∞', "radical": '√', "integral": '∫', "summation": '∑',
	"partialdiff": '∂', "product": '∏', "notequal": '≠',
	"lessequal": '≤', "greaterequal": '≥', "approxequal": '≈',
	"increment": '∆', "element": '∈', "arrowright": '→', "arrowleft": '←',
	"arrowup": '↑', "arrowdown": '↓',
}
