// Package language normalizes the language labels that speech recognizers
// report and names languages for translation prompts and logs.
package language
